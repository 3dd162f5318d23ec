package surrogate

import (
	"sync"

	"gonum.org/v1/gonum/mat"
)

// matrixPool reuses matrix allocations across repeated fits and
// predictions. Returned matrices are only reused when their dimensions
// match the request, so callers never see stale shapes. A fitted model is
// shared across request goroutines, so the free lists are guarded.
type matrixPool struct {
	mu    sync.Mutex
	sym   []*mat.SymDense
	dense []*mat.Dense
}

func newMatrixPool() *matrixPool {
	return &matrixPool{}
}

func (p *matrixPool) getSym(n int) *mat.SymDense {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, m := range p.sym {
		if m.SymmetricDim() == n {
			p.sym = append(p.sym[:i], p.sym[i+1:]...)
			m.Zero()
			return m
		}
	}
	return mat.NewSymDense(n, nil)
}

func (p *matrixPool) putSym(m *mat.SymDense) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sym = append(p.sym, m)
}

func (p *matrixPool) getDense(r, c int) *mat.Dense {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, m := range p.dense {
		mr, mc := m.Dims()
		if mr == r && mc == c {
			p.dense = append(p.dense[:i], p.dense[i+1:]...)
			m.Zero()
			return m
		}
	}
	return mat.NewDense(r, c, nil)
}

func (p *matrixPool) putDense(m *mat.Dense) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dense = append(p.dense, m)
}
