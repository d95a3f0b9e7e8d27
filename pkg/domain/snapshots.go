package domain

import "time"

// LifecycleSnapshot is the rendered state of the lifecycle diagram.
type LifecycleSnapshot struct {
	Active      ThreadStateID `json:"active"`
	State       ThreadState   `json:"state"`
	Playing     bool          `json:"playing"`
	States      []ThreadState `json:"states"`
	Highlighted []Transition  `json:"highlighted"`
}

// RaceSnapshot is the rendered state of the race condition simulator.
type RaceSnapshot struct {
	Counter   int       `json:"counter"`
	ObservedA int       `json:"observed_a"`
	ObservedB int       `json:"observed_b"`
	Actors    [2]string `json:"actors"`
	Log       []string  `json:"log"`
	Running   bool      `json:"running"`
}

// DeadlockSnapshot is the rendered state of the deadlock visualizer.
type DeadlockSnapshot struct {
	Step       int          `json:"step"`
	TotalSteps int          `json:"total_steps"`
	Current    DeadlockStep `json:"current"`
	Running    bool         `json:"running"`
	Deadlocked bool         `json:"deadlocked"`
}

// ContextSwitchSnapshot is the rendered state of the context switch demo.
type ContextSwitchSnapshot struct {
	Actors      []string `json:"actors"`
	ActiveIndex int      `json:"active_index"`
	ActiveActor string   `json:"active_actor"`
	SwitchCount int      `json:"switch_count"`
	Speed       int      `json:"speed"`
	IntervalMS  int64    `json:"interval_ms"`
	OverheadMS  int      `json:"overhead_ms"`
	Running     bool     `json:"running"`
}

// ComparatorSnapshot is the rendered state of the synchronization comparator.
type ComparatorSnapshot struct {
	Active       TechniqueID          `json:"active"`
	Technique    Technique            `json:"technique"`
	ShowingAfter bool                 `json:"showing_after"`
	Steps        []string             `json:"steps"`
	Views        map[TechniqueID]bool `json:"views"`
}

// CoreView is one CPU core in the CPU model.
type CoreView struct {
	Index  int  `json:"index"`
	Active bool `json:"active"`
}

// Particle is one thread marker orbiting a core.
type Particle struct {
	Index int `json:"index"`
	Core  int `json:"core"`
}

// CPUStats are the illustrative figures shown beside the CPU model.
type CPUStats struct {
	ActiveThreads   int `json:"active_threads"`
	CPUUsage        int `json:"cpu_usage"`
	ContextSwitches int `json:"context_switches"`
	Throughput      int `json:"throughput"`
}

// CPUSnapshot is the rendered state of the CPU core model.
type CPUSnapshot struct {
	ThreadCount int        `json:"thread_count"`
	Running     bool       `json:"running"`
	ViewMode    ViewMode   `json:"view_mode"`
	Cores       []CoreView `json:"cores"`
	Particles   []Particle `json:"particles"`
	Stats       CPUStats   `json:"stats"`
}

// SessionSnapshot aggregates every widget of one session.
type SessionSnapshot struct {
	ID            string                `json:"id"`
	CreatedAt     time.Time             `json:"created_at"`
	LastSeen      time.Time             `json:"last_seen"`
	Lifecycle     LifecycleSnapshot     `json:"lifecycle"`
	Race          RaceSnapshot          `json:"race"`
	Deadlock      DeadlockSnapshot      `json:"deadlock"`
	ContextSwitch ContextSwitchSnapshot `json:"context_switch"`
	Comparator    ComparatorSnapshot    `json:"comparator"`
	CPU           CPUSnapshot           `json:"cpu"`
}
