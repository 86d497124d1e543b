package core

// ReentrancyGuard rejects a second entry into a guarded section before the
// first one has released.
type ReentrancyGuard struct {
	entered bool
}

// Enter marks the section as entered. The flag is journaled on tx when one is
// given so a rolled back operation also clears it.
func (g *ReentrancyGuard) Enter(tx *Tx) (release func(), err error) {
	if g.entered {
		return nil, ErrReentrantCall
	}
	g.entered = true
	tx.OnRollback(func() { g.entered = false })
	return func() { g.entered = false }, nil
}

func (g *ReentrancyGuard) Entered() bool {
	return g.entered
}
