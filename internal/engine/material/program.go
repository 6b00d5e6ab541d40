package material

import (
	"sync"
)

// Program is a GPU program handle.
type Program uint32

// InvalidProgram is returned when a program fails to compile or link.
const InvalidProgram Program = 0

// ProgramCompiler turns compiled materials into GPU programs. Compile never
// fails loudly: errors yield InvalidProgram.
type ProgramCompiler interface {
	Compile(cm *CompiledMaterial) Program
	Delete(p Program)
}

// ProgramCache memoizes programs per compiled material and drops them when
// the material compiler is reset. It is used from the rendering thread.
type ProgramCache struct {
	compiler   *Compiler
	backend    ProgramCompiler
	mu         sync.Mutex
	generation uint64
	programs   map[*CompiledMaterial]Program
}

// NewProgramCache creates a cache over backend.
func NewProgramCache(compiler *Compiler, backend ProgramCompiler) *ProgramCache {
	return &ProgramCache{
		compiler:   compiler,
		backend:    backend,
		generation: compiler.Generation(),
		programs:   make(map[*CompiledMaterial]Program),
	}
}

// Program returns the program for mask, compiling it on first use.
// A failed compile is remembered and not retried until the next reset.
func (pc *ProgramCache) Program(mask Mask) (Program, *CompiledMaterial) {
	cm := pc.compiler.Get(mask)

	pc.mu.Lock()
	defer pc.mu.Unlock()
	if g := pc.compiler.Generation(); g != pc.generation {
		pc.clearLocked()
		pc.generation = g
	}
	p, ok := pc.programs[cm]
	if !ok {
		p = pc.backend.Compile(cm)
		pc.programs[cm] = p
	}
	return p, cm
}

// Len returns the number of cached programs.
func (pc *ProgramCache) Len() int {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return len(pc.programs)
}

// Clear deletes every cached program.
func (pc *ProgramCache) Clear() {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.clearLocked()
}

func (pc *ProgramCache) clearLocked() {
	for cm, p := range pc.programs {
		if p != InvalidProgram {
			pc.backend.Delete(p)
		}
		delete(pc.programs, cm)
	}
}
