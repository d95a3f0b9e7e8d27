// Package catalog holds the built-in lesson content used to seed empty
// catalogue stores.
package catalog

import "threadlab/pkg/domain"

const (
	lifecycleSamplePrefix = "samples/lifecycle/"
	syncSamplePrefix      = "samples/sync/"
)

// LifecycleSampleKey returns the blob key of a lifecycle state's code sample.
func LifecycleSampleKey(id domain.ThreadStateID) string {
	return lifecycleSamplePrefix + string(id) + ".txt"
}

// TechniqueSampleKey returns the blob key of a technique's code sample.
func TechniqueSampleKey(id domain.TechniqueID) string {
	return syncSamplePrefix + string(id) + ".txt"
}

// Default returns a fresh copy of the built-in catalogue.
func Default() domain.Catalog {
	return domain.Catalog{
		States:        threadStates(),
		Transitions:   transitions(),
		LifecyclePath: []domain.ThreadStateID{domain.StateNew, domain.StateReady, domain.StateRunning, domain.StateWaiting, domain.StateReady, domain.StateRunning, domain.StateTerminated},
		Techniques:    techniques(),
		DeadlockSteps: deadlockSteps(),
		RaceActors:    [2]string{"Thread 1", "Thread 2"},
		SwitchActors:  []string{"Thread A", "Thread B", "Thread C", "Thread D"},
	}
}

func threadStates() []domain.ThreadState {
	return []domain.ThreadState{
		{
			ID:          domain.StateNew,
			Name:        "New",
			Description: "Thread is created but not yet started",
			CodeSample:  "Thread t = new Thread(runnable);",
			SampleKey:   LifecycleSampleKey(domain.StateNew),
			Details: []string{
				"Thread object is instantiated",
				"Resources not yet allocated",
				"Waiting for start() call",
			},
			Tip: "Always call start() instead of run() to create a new thread of execution.",
		},
		{
			ID:          domain.StateReady,
			Name:        "Ready/Runnable",
			Description: "Thread is ready to run and waiting for CPU time",
			CodeSample:  "t.start(); // Thread enters runnable state",
			SampleKey:   LifecycleSampleKey(domain.StateReady),
			Details: []string{
				"Thread is in the ready queue",
				"Waiting for scheduler to pick it",
				"All resources allocated",
			},
			Tip: "The JVM scheduler decides which thread runs next based on priority and scheduling algorithm.",
		},
		{
			ID:          domain.StateRunning,
			Name:        "Running",
			Description: "Thread is currently executing on a CPU core",
			CodeSample:  "// run() method is executing",
			SampleKey:   LifecycleSampleKey(domain.StateRunning),
			Details: []string{
				"Actively using CPU resources",
				"Executing the run() method",
				"Can be preempted by scheduler",
			},
			Tip: "A thread can yield() to give other threads a chance to run.",
		},
		{
			ID:          domain.StateWaiting,
			Name:        "Waiting/Blocked",
			Description: "Thread is waiting for a resource or condition",
			CodeSample:  "synchronized(lock) { lock.wait(); }",
			SampleKey:   LifecycleSampleKey(domain.StateWaiting),
			Details: []string{
				"Waiting for I/O operation",
				"Waiting for lock acquisition",
				"Waiting for notify() signal",
			},
			Tip: "Always use wait() inside a synchronized block to avoid IllegalMonitorStateException.",
		},
		{
			ID:          domain.StateTerminated,
			Name:        "Terminated",
			Description: "Thread has completed execution",
			CodeSample:  "// run() method completed or exception thrown",
			SampleKey:   LifecycleSampleKey(domain.StateTerminated),
			Details: []string{
				"run() method finished",
				"Resources being released",
				"Cannot be restarted",
			},
			Tip: "Once terminated, a thread cannot be restarted. Create a new thread object instead.",
		},
	}
}

func transitions() []domain.Transition {
	return []domain.Transition{
		{From: domain.StateNew, To: domain.StateReady, Label: "start()"},
		{From: domain.StateReady, To: domain.StateRunning, Label: "Scheduler dispatch"},
		{From: domain.StateRunning, To: domain.StateReady, Label: "Yield/Preempt"},
		{From: domain.StateRunning, To: domain.StateWaiting, Label: "wait()/sleep()"},
		{From: domain.StateWaiting, To: domain.StateReady, Label: "notify()/timeout"},
		{From: domain.StateRunning, To: domain.StateTerminated, Label: "Complete/Exception"},
	}
}

func techniques() []domain.Technique {
	return []domain.Technique{
		{
			ID:          domain.TechniqueMutex,
			Title:       "Mutex Locks",
			Description: "Mutual exclusion locks ensure only one thread can access a critical section at a time.",
			Before: []string{
				"Thread A reads value: 5",
				"Thread B reads value: 5",
				"Thread A writes: 6",
				"Thread B writes: 6",
				"Expected: 7, Actual: 6 ❌",
			},
			After: []string{
				"Thread A acquires lock",
				"Thread A reads: 5, writes: 6",
				"Thread A releases lock",
				"Thread B acquires lock",
				"Thread B reads: 6, writes: 7 ✅",
			},
			CodeSample: "mutex.lock();\ntry {\n  counter++;\n} finally {\n  mutex.unlock();\n}",
			SampleKey:  TechniqueSampleKey(domain.TechniqueMutex),
			Pros:       []string{"Simple to understand", "Prevents race conditions", "Strong guarantees"},
			Cons:       []string{"Can cause deadlocks", "Performance overhead", "Risk of forgotten unlock"},
		},
		{
			ID:          domain.TechniqueSemaphore,
			Title:       "Semaphores",
			Description: "Counting mechanisms that control access to a pool of resources with a limited capacity.",
			Before: []string{
				"Pool has 3 connections",
				"10 threads request access",
				"All 10 try simultaneously",
				"Connection pool exhausted",
				"System crash ❌",
			},
			After: []string{
				"Semaphore initialized: 3",
				"Threads 1-3 acquire permits",
				"Threads 4-10 wait in queue",
				"Thread releases, next acquires",
				"Controlled access ✅",
			},
			CodeSample: "Semaphore pool = new Semaphore(3);\n\npool.acquire(); // Wait for permit\ntry {\n  useConnection();\n} finally {\n  pool.release();\n}",
			SampleKey:  TechniqueSampleKey(domain.TechniqueSemaphore),
			Pros:       []string{"Controls resource pools", "Allows multiple access", "Flexible counting"},
			Cons:       []string{"More complex than mutex", "Need to track permits", "Possible starvation"},
		},
		{
			ID:          domain.TechniqueAtomic,
			Title:       "Atomic Operations",
			Description: "Hardware-supported indivisible operations that complete without interruption.",
			Before: []string{
				"Read counter value",
				"...context switch...",
				"Another thread modifies",
				"...context switch...",
				"Write stale value ❌",
			},
			After: []string{
				"AtomicInteger counter",
				"counter.incrementAndGet()",
				"Single CPU instruction",
				"No interruption possible",
				"Always consistent ✅",
			},
			CodeSample: "AtomicInteger counter = new AtomicInteger(0);\n\n// Thread-safe increment\nint newValue = counter.incrementAndGet();\n\n// Compare and swap\ncounter.compareAndSet(expected, newValue);",
			SampleKey:  TechniqueSampleKey(domain.TechniqueAtomic),
			Pros:       []string{"No locks needed", "Best performance", "No deadlock risk"},
			Cons:       []string{"Limited operations", "Not for complex logic", "Hardware dependent"},
		},
	}
}

func deadlockSteps() []domain.DeadlockStep {
	return []domain.DeadlockStep{
		{ActorA: "Waiting", ActorB: "Waiting", ResourceA: "Free", ResourceB: "Free", Description: "Both threads ready to acquire locks"},
		{ActorA: "Holds Lock A", ActorB: "Waiting", ResourceA: "Thread 1", ResourceB: "Free", Description: "Thread 1 acquires Lock A"},
		{ActorA: "Holds Lock A", ActorB: "Holds Lock B", ResourceA: "Thread 1", ResourceB: "Thread 2", Description: "Thread 2 acquires Lock B"},
		{ActorA: "Waiting Lock B", ActorB: "Holds Lock B", ResourceA: "Thread 1", ResourceB: "Thread 2", Description: "Thread 1 tries to acquire Lock B - BLOCKED"},
		{ActorA: "Waiting Lock B", ActorB: "Waiting Lock A", ResourceA: "Thread 1", ResourceB: "Thread 2", Description: "Thread 2 tries to acquire Lock A - DEADLOCK!"},
	}
}
