package placement

import (
	"sync"
	"testing"
)

func TestRegistryAppendIfAbsent(t *testing.T) {
	r := NewClassRegistry(nil)

	if id := r.Add("harpoon"); id != 0 {
		t.Errorf("first class got ID %d, want 0", id)
	}
	if id := r.Add("ulu"); id != 1 {
		t.Errorf("second class got ID %d, want 1", id)
	}
	if id := r.Add("harpoon"); id != 0 {
		t.Errorf("existing class got ID %d, want stable 0", id)
	}

	names := r.Names()
	if len(names) != 2 || names[0] != "harpoon" || names[1] != "ulu" {
		t.Errorf("unexpected names: %v", names)
	}
}

func TestRegistryPreload(t *testing.T) {
	r := NewClassRegistry([]string{"a", "b", "a"})

	if r.Len() != 2 {
		t.Fatalf("preload with duplicate gave %d classes, want 2", r.Len())
	}
	if id := r.Add("b"); id != 1 {
		t.Errorf("preloaded class got ID %d, want 1", id)
	}
	if id := r.Add("c"); id != 2 {
		t.Errorf("new class got ID %d, want 2", id)
	}
}

func TestRegistryNamesIsSnapshot(t *testing.T) {
	r := NewClassRegistry([]string{"a"})
	names := r.Names()
	r.Add("b")
	if len(names) != 1 {
		t.Errorf("snapshot grew after Add: %v", names)
	}
}

func TestRegistryConcurrentAdd(t *testing.T) {
	r := NewClassRegistry(nil)
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Add("same")
		}()
	}
	wg.Wait()

	if r.Len() != 1 {
		t.Errorf("concurrent adds of one name produced %d classes", r.Len())
	}
}
