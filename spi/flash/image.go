package flash

import (
	"encoding/binary"
	"fmt"
	"math/bits"
	"os"
)

// MaxSize is the largest image a 24-bit address can reach.
const MaxSize = 1 << 24

// Image is the byte content of a flash part.
type Image []byte

// NewImage allocates an erased image of size bytes.
func NewImage(size int) (Image, error) {
	if err := CheckSize(size); err != nil {
		return nil, err
	}

	img := make(Image, size)
	for i := range img {
		img[i] = 0xFF
	}

	return img, nil
}

// PatternImage fills an image so that every word holds a value derived from
// its own word address. Mismatched addresses are then easy to spot.
func PatternImage(size int) (Image, error) {
	img, err := NewImage(size)
	if err != nil {
		return nil, err
	}

	for w := 0; w+4 <= size; w += 4 {
		v := uint32(w/4)*0x9E3779B1 ^ 0xA5A5_0000
		binary.LittleEndian.PutUint32(img[w:], v)
	}

	return img, nil
}

// LoadImage reads a binary file into an image of size bytes. The remainder
// stays erased.
func LoadImage(path string, size int) (Image, error) {
	img, err := NewImage(size)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("flash: loading image: %w", err)
	}

	if len(data) > size {
		return nil, fmt.Errorf("%w: file has %d bytes, image %d",
			ErrImageTooLarge, len(data), size)
	}

	copy(img, data)

	return img, nil
}

// CheckSize validates an image size. An image holds at least one bus word.
func CheckSize(size int) error {
	if size < 4 || size > MaxSize || bits.OnesCount(uint(size)) != 1 {
		return fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}

	return nil
}

// Word returns the little-endian word at word address wordAddr, as the bus
// sees it when bytes are reordered.
func (img Image) Word(wordAddr uint32) uint32 {
	off := (int(wordAddr) * 4) & (len(img) - 1)
	return binary.LittleEndian.Uint32(img[off : off+4])
}

// Byte returns the byte at addr, wrapping at the end of the image.
func (img Image) Byte(addr uint32) byte {
	return img[int(addr)&(len(img)-1)]
}
