package rbtree

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustVerify(t *testing.T, tree *Tree[string]) {
	t.Helper()
	if err := tree.Verify(); err != nil {
		t.Fatal(err)
	}
}

func insertAll(tree *Tree[string], keys ...int) {
	for _, k := range keys {
		tree.Insert(k, "")
	}
}

func TestTreeInsertGetDelete(t *testing.T) {
	tree := New[string]()
	if !tree.Insert(100, "a") {
		t.Fatal("Insert failed")
	}
	if v, ok := tree.Get(100); !ok || v != "a" {
		t.Errorf("Get(100) = %q, %v", v, ok)
	}
	if tree.Insert(100, "b") {
		t.Error("duplicate insert should be rejected")
	}
	if v, _ := tree.Get(100); v != "a" {
		t.Errorf("duplicate insert overwrote value: %q", v)
	}

	tree.Insert(200, "b")
	if tree.Min().Key != 100 {
		t.Error("expected min=100")
	}
	if tree.Max().Key != 200 {
		t.Error("expected max=200")
	}

	if !tree.Delete(100) {
		t.Error("Delete failed")
	}
	if _, ok := tree.Get(100); ok {
		t.Error("expected key 100 to be gone")
	}
	if tree.Delete(100) {
		t.Error("deleting an absent key should report false")
	}
	if tree.Len() != 1 {
		t.Errorf("expected size 1, got %d", tree.Len())
	}
	mustVerify(t, tree)
}

func TestTreeEmpty(t *testing.T) {
	tree := New[string]()
	if tree.Min() != nil || tree.Max() != nil {
		t.Error("empty tree should have no min/max")
	}
	lo, hi := tree.Closest(5)
	if lo != nil || hi != nil {
		t.Error("empty tree should have no closest keys")
	}
	if tree.Delete(1) {
		t.Error("delete on empty tree should report false")
	}
	mustVerify(t, tree)
}

func TestTreeRandomInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tree := New[string]()
	present := map[int]bool{}

	for i := 0; i < 3000; i++ {
		k := rng.Intn(500)
		before := tree.ColorFlips()
		if rng.Intn(3) == 0 {
			if got := tree.Delete(k); got != present[k] {
				t.Fatalf("Delete(%d) = %v, want %v", k, got, present[k])
			}
			delete(present, k)
		} else {
			if got := tree.Insert(k, "v"); got == present[k] {
				t.Fatalf("Insert(%d) = %v with present=%v", k, got, present[k])
			}
			present[k] = true
		}
		if tree.ColorFlips() < before {
			t.Fatal("flip counter decreased")
		}
		mustVerify(t, tree)
	}

	want := make([]int, 0, len(present))
	for k := range present {
		want = append(want, k)
	}
	sort.Ints(want)
	if diff := cmp.Diff(want, tree.Keys()); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestTreeDeleteEverything(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	tree := New[string]()
	keys := rng.Perm(200)
	insertAll(tree, keys...)
	rng.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
	for _, k := range keys {
		if !tree.Delete(k) {
			t.Fatalf("Delete(%d) failed", k)
		}
		mustVerify(t, tree)
	}
	if tree.root != sentinel || tree.Len() != 0 {
		t.Errorf("expected empty tree, root=%d size=%d", tree.root, tree.Len())
	}
}

func TestTreeReusesSlots(t *testing.T) {
	tree := New[string]()
	insertAll(tree, 1, 2, 3, 4, 5)
	arena := len(tree.nodes)
	tree.Delete(2)
	tree.Delete(4)
	insertAll(tree, 6, 7)
	if len(tree.nodes) != arena {
		t.Errorf("arena grew from %d to %d despite free slots", arena, len(tree.nodes))
	}
	mustVerify(t, tree)
}

// Two-child deletions: the successor is either the right child itself or a
// deeper left-most node.
func TestTreeDeleteTwoChildren(t *testing.T) {
	build := func() *Tree[string] {
		tree := New[string]()
		insertAll(tree, 50, 25, 75, 12, 37, 62, 87, 6, 18, 31, 43, 56, 68, 81, 93, 40, 45)
		return tree
	}

	for _, k := range []int{50, 25, 75, 37, 12, 87} {
		tree := build()
		want := tree.Keys()
		for i, w := range want {
			if w == k {
				want = append(want[:i:i], want[i+1:]...)
				break
			}
		}
		if !tree.Delete(k) {
			t.Fatalf("Delete(%d) failed", k)
		}
		mustVerify(t, tree)
		if diff := cmp.Diff(want, tree.Keys()); diff != "" {
			t.Errorf("after deleting %d (-want +got):\n%s", k, diff)
		}
	}
}

func TestTreeDeleteSuccessorIsRightChild(t *testing.T) {
	tree := New[string]()
	insertAll(tree, 20, 10, 30, 25)
	// 20's successor 25 sits below 30; after that, 25's successor 30 is
	// its direct right child.
	tree.Delete(20)
	mustVerify(t, tree)
	if tree.nodes[tree.root].key != 25 {
		t.Errorf("expected successor 25 at root, got %d", tree.nodes[tree.root].key)
	}
	tree.Delete(25)
	mustVerify(t, tree)
	if diff := cmp.Diff([]int{10, 30}, tree.Keys()); diff != "" {
		t.Errorf("keys (-want +got):\n%s", diff)
	}
}

func TestColorFlipsBalancedInsertsDoNotCount(t *testing.T) {
	tree := New[string]()
	insertAll(tree, 20, 10, 30)
	if got := tree.ColorFlips(); got != 0 {
		t.Errorf("expected no flips for a balanced 3-node build, got %d", got)
	}
}

func TestColorFlipsRootRotationDoesNotCount(t *testing.T) {
	tree := New[string]()
	insertAll(tree, 10, 20, 30)
	if got := tree.ColorFlips(); got != 0 {
		t.Errorf("rotation at the root should not count, got %d", got)
	}
	// Red uncle: three recolors.
	tree.Insert(40, "")
	if got := tree.ColorFlips(); got != 3 {
		t.Errorf("expected 3 flips after uncle recolor, got %d", got)
	}
	mustVerify(t, tree)
}

func TestColorFlipsInternalRotationCounts(t *testing.T) {
	tree := New[string]()
	insertAll(tree, 10, 20, 30, 40) // 3 flips so far
	tree.Insert(50, "")              // rotation at 30, below the root
	if got := tree.ColorFlips(); got != 5 {
		t.Errorf("expected 5 flips, got %d", got)
	}
	mustVerify(t, tree)
}

func TestColorFlipsDeleteCaseFour(t *testing.T) {
	tree := New[string]()
	insertAll(tree, 10, 20, 30, 40) // 20B(10B, 30B(-, 40R))
	tree.Delete(10)
	// sibling 30 and parent 20 are already black; only 40 changes.
	if got := tree.ColorFlips(); got != 4 {
		t.Errorf("expected 4 flips, got %d", got)
	}
	mustVerify(t, tree)
}

func TestColorFlipsMirrorSymmetry(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for round := 0; round < 50; round++ {
		keys := rng.Perm(64)
		pos, neg := New[string](), New[string]()
		for _, k := range keys {
			pos.Insert(k+1, "")
			neg.Insert(-(k + 1), "")
			if pos.ColorFlips() != neg.ColorFlips() {
				t.Fatalf("round %d insert %d: flips %d vs mirrored %d", round, k+1, pos.ColorFlips(), neg.ColorFlips())
			}
		}
		// Two-child deletes splice the successor, whose mirror image is a
		// predecessor, so only nodes with a free side keep the trees mirrored.
		for _, k := range keys[:40] {
			if x := pos.search(k + 1); pos.nodes[x].left != sentinel && pos.nodes[x].right != sentinel {
				continue
			}
			pos.Delete(k + 1)
			neg.Delete(-(k + 1))
			if pos.ColorFlips() != neg.ColorFlips() {
				t.Fatalf("round %d delete %d: flips %d vs mirrored %d", round, k+1, pos.ColorFlips(), neg.ColorFlips())
			}
		}
	}
}

func TestTreeClosest(t *testing.T) {
	tree := New[string]()
	insertAll(tree, 10, 20, 5, 15)

	lo, hi := tree.Closest(12)
	if lo == nil || lo.Key != 10 || hi == nil || hi.Key != 15 {
		t.Errorf("Closest(12) = %v, %v", lo, hi)
	}
	lo, hi = tree.Closest(15)
	if lo == nil || lo.Key != 10 || hi == nil || hi.Key != 15 {
		t.Errorf("Closest(15) = %v, %v", lo, hi)
	}
	lo, hi = tree.Closest(1)
	if lo != nil || hi == nil || hi.Key != 5 {
		t.Errorf("Closest(1) = %v, %v", lo, hi)
	}
	lo, hi = tree.Closest(99)
	if lo == nil || lo.Key != 20 || hi != nil {
		t.Errorf("Closest(99) = %v, %v", lo, hi)
	}
}

func TestTreeRange(t *testing.T) {
	tree := New[string]()
	insertAll(tree, 5, 10, 15, 20)

	var got []int
	tree.Range(5, 15, func(k int, _ string) bool {
		got = append(got, k)
		return true
	})
	if diff := cmp.Diff([]int{5, 10, 15}, got); diff != "" {
		t.Errorf("Range(5,15) (-want +got):\n%s", diff)
	}

	got = got[:0]
	tree.Range(6, 100, func(k int, _ string) bool {
		got = append(got, k)
		return len(got) < 2
	})
	if diff := cmp.Diff([]int{10, 15}, got); diff != "" {
		t.Errorf("early stop (-want +got):\n%s", diff)
	}

	called := false
	tree.Range(20, 5, func(int, string) bool { called = true; return true })
	if called {
		t.Error("inverted range should visit nothing")
	}
}

func TestTreeAscendDescend(t *testing.T) {
	tree := New[string]()
	insertAll(tree, 3, 1, 4, 1, 5, 9, 2, 6)

	var asc, desc []int
	tree.Ascend(func(k int, _ string) bool { asc = append(asc, k); return true })
	tree.Descend(func(k int, _ string) bool { desc = append(desc, k); return k > 4 })
	if diff := cmp.Diff([]int{1, 2, 3, 4, 5, 6, 9}, asc); diff != "" {
		t.Errorf("ascend (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{9, 6, 5, 4}, desc); diff != "" {
		t.Errorf("descend (-want +got):\n%s", diff)
	}
}

func TestVerifyDetectsCorruption(t *testing.T) {
	tree := New[string]()
	insertAll(tree, 2, 1, 3)
	tree.nodes[tree.nodes[tree.root].left].color = black
	if err := tree.Verify(); err == nil {
		t.Error("expected black-height violation to be reported")
	}
}

func BenchmarkTreeInsert(b *testing.B) {
	tree := New[int]()
	for i := 0; i < b.N; i++ {
		tree.Insert(i, i)
	}
}

func BenchmarkTreeInsertDelete(b *testing.B) {
	tree := New[int]()
	for i := 0; i < 1<<12; i++ {
		tree.Insert(i, i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		k := i & (1<<12 - 1)
		tree.Delete(k)
		tree.Insert(k, k)
	}
}
