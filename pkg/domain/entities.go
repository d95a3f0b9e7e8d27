// Package domain defines the lesson catalogue, widget snapshot types, and
// store contracts shared by threadlab's simulations and adapters.
package domain

// ThreadStateID identifies one state of the thread lifecycle diagram.
type ThreadStateID string

// Lifecycle state identifiers in diagram order.
const (
	StateNew        ThreadStateID = "new"
	StateReady      ThreadStateID = "ready"
	StateRunning    ThreadStateID = "running"
	StateWaiting    ThreadStateID = "waiting"
	StateTerminated ThreadStateID = "terminated"
)

// ThreadState is one node of the lifecycle diagram and the text shown when it
// is the active state.
type ThreadState struct {
	ID          ThreadStateID `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	CodeSample  string        `json:"code_sample"`
	SampleKey   string        `json:"sample_key,omitempty"`
	Details     []string      `json:"details"`
	Tip         string        `json:"tip"`
}

// Transition is a labelled edge between two lifecycle states. Edges are
// descriptive only; playback does not walk them.
type Transition struct {
	From  ThreadStateID `json:"from"`
	To    ThreadStateID `json:"to"`
	Label string        `json:"label"`
}

// Touches reports whether the edge starts or ends at id.
func (t Transition) Touches(id ThreadStateID) bool {
	return t.From == id || t.To == id
}

// TechniqueID identifies a synchronization technique in the comparator.
type TechniqueID string

// Known synchronization techniques.
const (
	TechniqueMutex     TechniqueID = "mutex"
	TechniqueSemaphore TechniqueID = "semaphore"
	TechniqueAtomic    TechniqueID = "atomic"
)

// Technique pairs an unsynchronized narrative with its synchronized fix.
type Technique struct {
	ID          TechniqueID `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Before      []string    `json:"before"`
	After       []string    `json:"after"`
	CodeSample  string      `json:"code_sample"`
	SampleKey   string      `json:"sample_key,omitempty"`
	Pros        []string    `json:"pros"`
	Cons        []string    `json:"cons"`
}

// DeadlockStep is one authored snapshot of the two-thread, two-lock scenario.
type DeadlockStep struct {
	ActorA      string `json:"actor_a"`
	ActorB      string `json:"actor_b"`
	ResourceA   string `json:"resource_a"`
	ResourceB   string `json:"resource_b"`
	Description string `json:"description"`
}

// ViewMode selects how many cores the CPU model shows.
type ViewMode string

// Supported CPU view modes.
const (
	ViewSingle ViewMode = "single"
	ViewMulti  ViewMode = "multi"
)

// Cores returns the number of cores rendered for the mode.
func (m ViewMode) Cores() int {
	if m == ViewSingle {
		return 1
	}
	return 4
}

// Valid reports whether m is a known view mode.
func (m ViewMode) Valid() bool {
	return m == ViewSingle || m == ViewMulti
}
