// Package idgen generates the IDs carried by messages, events, and tasks.
package idgen

import (
	"log"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
)

// Generator produces unique identifiers.
type Generator interface {
	Generate() string
}

// NewSequential returns a generator whose first emitted ID is "1". IDs are
// reproducible across runs.
func NewSequential() Generator {
	return &sequentialGenerator{}
}

// NewParallel returns a generator backed by globally unique xids. IDs are not
// reproducible across runs.
func NewParallel() Generator {
	return parallelGenerator{}
}

type sequentialGenerator struct {
	next uint64
}

func (g *sequentialGenerator) Generate() string {
	return strconv.FormatUint(atomic.AddUint64(&g.next, 1), 10)
}

type parallelGenerator struct{}

func (parallelGenerator) Generate() string {
	return xid.New().String()
}

var (
	globalLock sync.Mutex
	global     Generator
)

// UseSequential selects the sequential generator for the process. It must be
// called before the first call to Get.
func UseSequential() {
	use(NewSequential())
}

// UseParallel selects the xid generator for the process. It must be called
// before the first call to Get.
func UseParallel() {
	use(NewParallel())
}

func use(g Generator) {
	globalLock.Lock()
	defer globalLock.Unlock()

	if global != nil {
		log.Panic("cannot change id generator type after using it")
	}

	global = g
}

// Get returns the process-wide generator, defaulting to sequential.
func Get() Generator {
	globalLock.Lock()
	defer globalLock.Unlock()

	if global == nil {
		global = NewSequential()
	}

	return global
}
