package comm

import (
	"fmt"

	"github.com/sarchlab/spiflash/hooking"
)

// ComponentBase provides the name, hooks, and port registry shared by
// components.
type ComponentBase struct {
	*hooking.HookableBase

	name  string
	ports map[string]Port
	order []string
}

// NewComponentBase creates a new ComponentBase.
func NewComponentBase(name string) *ComponentBase {
	return &ComponentBase{
		HookableBase: hooking.NewHookableBase(),
		name:         name,
		ports:        make(map[string]Port),
	}
}

// Name returns the name of the component.
func (c *ComponentBase) Name() string {
	return c.name
}

// AddPort registers a port under a short name such as "Top".
func (c *ComponentBase) AddPort(name string, port Port) {
	if _, found := c.ports[name]; found {
		panic(fmt.Sprintf("port %s already exists", name))
	}

	c.ports[name] = port
	c.order = append(c.order, name)
}

// GetPortByName returns the port registered under name.
func (c *ComponentBase) GetPortByName(name string) Port {
	port, found := c.ports[name]
	if !found {
		panic(fmt.Sprintf("port %s not found", name))
	}

	return port
}

// Ports returns all ports in registration order.
func (c *ComponentBase) Ports() []Port {
	ports := make([]Port, 0, len(c.order))
	for _, name := range c.order {
		ports = append(ports, c.ports[name])
	}

	return ports
}
