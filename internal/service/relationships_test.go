package service

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/ddltrack/internal/domain"
)

func ids(tasks []*domain.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func TestSetParent_Bidirectional(t *testing.T) {
	svc, _, _ := newTestService(t)
	x := mustAdd(t, svc, "X")
	y := mustAdd(t, svc, "Y")
	z := mustAdd(t, svc, "Z")

	ok, err := svc.SetParent(x.ID, y.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, ids(svc.GetChildren(y.ID)), x.ID)
	assert.Equal(t, []string{y.ID, z.ID}, ids(svc.GetRoots()))

	// Moving to another parent removes it from the old one
	ok, err = svc.SetParent(x.ID, z.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, svc.GetChildren(y.ID))
	assert.Equal(t, []string{x.ID}, ids(svc.GetChildren(z.ID)))

	// Setting the same parent twice does not duplicate the child
	ok, err = svc.SetParent(x.ID, z.ID)
	require.NoError(t, err)
	require.True(t, ok)
	got, _ := svc.GetByID(z.ID)
	assert.Equal(t, []string{x.ID}, got.ChildIDs)

	ok, err = svc.SetParent(x.ID, "")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, svc.GetChildren(z.ID))
	got, _ = svc.GetByID(x.ID)
	assert.True(t, got.IsRoot)
	assert.Empty(t, got.ParentID)
	_, hasParent := svc.GetParent(x.ID)
	assert.False(t, hasParent)

	assert.Empty(t, svc.Verify())
}

func TestSetParent_Rejections(t *testing.T) {
	svc, memStorage, logs := newTestService(t)
	a := mustAdd(t, svc, "A")
	b := mustAdd(t, svc, "B")
	c := mustAdd(t, svc, "C")

	_, err := svc.SetParent(b.ID, a.ID)
	require.NoError(t, err)
	_, err = svc.SetParent(c.ID, b.ID)
	require.NoError(t, err)
	saves := memStorage.Saves()

	cases := []struct {
		name   string
		task   string
		parent string
	}{
		{"unknown task", "missing", a.ID},
		{"unknown parent", b.ID, "missing"},
		{"self", a.ID, a.ID},
		{"child of own child", a.ID, b.ID},
		{"child of own grandchild", a.ID, c.ID},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := svc.SetParent(tc.task, tc.parent)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}

	assert.Equal(t, saves, memStorage.Saves())
	got, _ := svc.GetByID(b.ID)
	assert.Equal(t, a.ID, got.ParentID, "rejected call left the old parent in place")
	got, _ = svc.GetByID(a.ID)
	assert.True(t, got.IsRoot)
	assert.Contains(t, logs.String(), "is a descendant of the task")
	assert.Empty(t, svc.Verify())
}

func TestAddDependency_CycleScenario(t *testing.T) {
	svc, _, _ := newTestService(t)
	x := mustAdd(t, svc, "X")
	y := mustAdd(t, svc, "Y")
	z := mustAdd(t, svc, "Z")

	ok, err := svc.AddDependency(y.ID, x.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.AddDependency(x.ID, y.ID)
	require.NoError(t, err)
	assert.False(t, ok, "X -> Y -> X")

	ok, err = svc.AddDependency(z.ID, y.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.AddDependency(x.ID, z.ID)
	require.NoError(t, err)
	assert.False(t, ok, "X -> Z -> Y -> X")

	gx, _ := svc.GetByID(x.ID)
	gy, _ := svc.GetByID(y.ID)
	gz, _ := svc.GetByID(z.ID)
	assert.Empty(t, gx.DependencyIDs)
	assert.Equal(t, []string{x.ID}, gy.DependencyIDs)
	assert.Equal(t, []string{y.ID}, gz.DependencyIDs)
}

func TestAddDependency_RejectionsAndIdempotence(t *testing.T) {
	svc, memStorage, _ := newTestService(t)
	a := mustAdd(t, svc, "A")
	b := mustAdd(t, svc, "B")

	ok, err := svc.AddDependency(a.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, ok, "self dependency is a cycle")

	ok, err = svc.AddDependency(a.ID, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = svc.AddDependency("missing", a.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.AddDependency(a.ID, b.ID)
	require.NoError(t, err)
	require.True(t, ok)
	saves := memStorage.Saves()

	ok, err = svc.AddDependency(a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, saves, memStorage.Saves())
	got, _ := svc.GetByID(a.ID)
	assert.Equal(t, []string{b.ID}, got.DependencyIDs)
}

func TestDependencyQueries(t *testing.T) {
	svc, _, _ := newTestService(t)
	a := mustAdd(t, svc, "A")
	b := mustAdd(t, svc, "B")
	c := mustAdd(t, svc, "C")

	_, err := svc.AddDependency(a.ID, b.ID)
	require.NoError(t, err)
	_, err = svc.AddDependency(a.ID, c.ID)
	require.NoError(t, err)
	_, err = svc.AddDependency(b.ID, c.ID)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{b.ID, c.ID}, ids(svc.GetDependencies(a.ID)))
	assert.ElementsMatch(t, []string{a.ID, b.ID}, ids(svc.GetDependents(c.ID)))
	assert.Empty(t, svc.GetDependencies("missing"))
	assert.Empty(t, svc.GetChildren("missing"))

	ok, err := svc.RemoveDependency(a.ID, c.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.RemoveDependency(a.ID, c.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = svc.RemoveDependency("missing", c.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, []string{b.ID}, ids(svc.GetDependencies(a.ID)))
	assert.Equal(t, []string{b.ID}, ids(svc.GetDependents(c.ID)))
}

func TestReorderChildren(t *testing.T) {
	svc, memStorage, _ := newTestService(t)
	p := mustAdd(t, svc, "P")
	c1 := mustAdd(t, svc, "C1")
	c2 := mustAdd(t, svc, "C2")
	other := mustAdd(t, svc, "Other")
	for _, c := range []*domain.Task{c1, c2} {
		_, err := svc.SetParent(c.ID, p.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{c1.ID, c2.ID}, ids(svc.GetChildren(p.ID)))

	ok, err := svc.ReorderChildren(p.ID, []string{c2.ID, c1.ID})
	require.NoError(t, err)
	require.True(t, ok)

	children := svc.GetChildren(p.ID)
	assert.Equal(t, []string{c2.ID, c1.ID}, ids(children))
	assert.Equal(t, 0, children[0].Order)
	assert.Equal(t, 1, children[1].Order)

	saves := memStorage.Saves()
	invalid := [][]string{
		{c1.ID, other.ID},
		{c1.ID, "missing"},
		{c1.ID},
		{c1.ID, c1.ID},
		{c1.ID, c2.ID, other.ID},
	}
	for _, order := range invalid {
		ok, err := svc.ReorderChildren(p.ID, order)
		require.NoError(t, err)
		assert.False(t, ok, "%v", order)
	}
	ok, err = svc.ReorderChildren("missing", nil)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, saves, memStorage.Saves())
	assert.Equal(t, []string{c2.ID, c1.ID}, ids(svc.GetChildren(p.ID)))
	assert.Empty(t, svc.Verify())
}

func TestVerify_DetectsCorruption(t *testing.T) {
	a := domain.NewTask("A", "")
	b := domain.NewTask("B", "")
	a.DependencyIDs = []string{b.ID}
	b.DependencyIDs = []string{a.ID}
	b.ChildIDs = []string{"ghost"}

	svc, _, _ := newTestService(t, a, b)
	problems := svc.Verify()
	assert.NotEmpty(t, problems)

	joined := ""
	for _, p := range problems {
		joined += p + "\n"
	}
	assert.Contains(t, joined, "dependency cycle")
	assert.Contains(t, joined, "child ghost does not exist")
}

// Random sequences of operations must never break the graph invariants.
func TestInvariantsHoldUnderRandomOperations(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		svc, _, _ := newTestService(t)
		var known []string

		pick := func() string {
			if len(known) == 0 || rng.Intn(10) == 0 {
				return "missing"
			}
			return known[rng.Intn(len(known))]
		}

		for step := 0; step < 300; step++ {
			var err error
			switch rng.Intn(9) {
			case 0, 1:
				var task *domain.Task
				task, err = svc.Add(domain.NewTask("t", ""))
				if err == nil {
					known = append(known, task.ID)
				}
			case 2:
				_, err = svc.SetParent(pick(), pick())
			case 3:
				_, err = svc.SetParent(pick(), "")
			case 4:
				_, err = svc.AddDependency(pick(), pick())
			case 5:
				_, err = svc.RemoveDependency(pick(), pick())
			case 6:
				_, err = svc.Delete(pick())
			case 7:
				parent := pick()
				order := ids(svc.GetChildren(parent))
				rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
				if rng.Intn(4) == 0 {
					order = append(order, pick())
				}
				_, err = svc.ReorderChildren(parent, order)
			case 8:
				if _, err = svc.MarkCompleted(pick(), true); err == nil && rng.Intn(3) == 0 {
					_, err = svc.DeleteAllCompleted()
				}
			}
			require.NoError(t, err)
			require.Empty(t, svc.Verify(), "seed %d step %d", seed, step)
		}
	}
}
