package controller

import "fmt"

// Handle addresses a controller stored in a Bank.
type Handle int

// Bank is a fixed capacity table of controllers, one per control axis.
// Controllers are added once at design time and addressed by Handle afterwards.
type Bank struct {
	ctrls []*LQG
}

// NewBank creates a Bank with room for size controllers.
// It returns error if size is not positive.
func NewBank(size int) (*Bank, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid bank size: %d", size)
	}

	return &Bank{
		ctrls: make([]*LQG, 0, size),
	}, nil
}

// Add stores c in the bank and returns its handle.
// It returns error if c is nil or the bank is full.
func (b *Bank) Add(c *LQG) (Handle, error) {
	if c == nil {
		return -1, fmt.Errorf("invalid controller: %v", c)
	}

	if len(b.ctrls) == cap(b.ctrls) {
		return -1, fmt.Errorf("bank full: %d controllers", cap(b.ctrls))
	}

	b.ctrls = append(b.ctrls, c)

	return Handle(len(b.ctrls) - 1), nil
}

// Get returns controller addressed by h.
// It returns error if h does not address a stored controller.
func (b *Bank) Get(h Handle) (*LQG, error) {
	if h < 0 || int(h) >= len(b.ctrls) {
		return nil, fmt.Errorf("invalid handle: %d", h)
	}

	return b.ctrls[h], nil
}

// Len returns the number of stored controllers.
func (b *Bank) Len() int {
	return len(b.ctrls)
}

// Control runs a control cycle of the controller addressed by h.
// It panics if h does not address a stored controller.
func (b *Bank) Control(h Handle, signal, setpoint float64) float64 {
	return b.ctrls[h].Control(signal, setpoint)
}

// RunCovariance runs n iterations of the recursions of every stored controller.
func (b *Bank) RunCovariance(n int) {
	for _, c := range b.ctrls {
		c.RunCovariance(n)
	}
}

// IsSolved returns true if every stored controller has converged.
// An empty bank is not solved.
func (b *Bank) IsSolved() bool {
	if len(b.ctrls) == 0 {
		return false
	}

	for _, c := range b.ctrls {
		if !c.IsSolved() {
			return false
		}
	}

	return true
}
