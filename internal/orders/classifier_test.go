package orders_test

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medstock/medstock/internal/orders"
)

func TestCountPartitionIsComplete(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	statuses := orders.AllStatuses()
	for round := 0; round < 50; round++ {
		n := rng.Intn(40)
		list := make([]orders.Order, n)
		for i := range list {
			list[i] = newOrder(statuses[rng.Intn(len(statuses))], uuid.New(), 1+rng.Intn(28))
		}
		c := orders.Count(list)
		assert.Equal(t, n, c.Total)
		assert.Equal(t, c.Total, c.Active+c.Completed+c.Cancelled)

		perTab := 0
		for _, tab := range orders.Tabs() {
			perTab += len(orders.Classify(list, orders.Filter{Tab: tab}))
		}
		assert.Equal(t, n, perTab, "tabs must be disjoint and exhaustive")
	}
}

func TestTabPartitionCoversEveryStatusOnce(t *testing.T) {
	seen := map[orders.Status]orders.Tab{}
	for _, tab := range orders.Tabs() {
		for _, s := range orders.StatusOptions(tab) {
			_, dup := seen[s]
			assert.False(t, dup, "status %s in more than one tab", s)
			seen[s] = tab
		}
	}
	assert.Len(t, seen, len(orders.AllStatuses()))
	assert.Equal(t, []orders.Status{orders.StatusPending, orders.StatusApproved}, orders.StatusOptions(orders.TabActive))
	assert.Equal(t, []orders.Status{orders.StatusDelivered, orders.StatusReceived}, orders.StatusOptions(orders.TabCompleted))
	assert.Equal(t, []orders.Status{orders.StatusCancelled}, orders.StatusOptions(orders.TabCancelled))
}

func TestClassifySortByStatusUsesCanonicalOrder(t *testing.T) {
	owner := uuid.New()
	var list []orders.Order
	for _, s := range []orders.Status{orders.StatusCancelled, orders.StatusReceived, orders.StatusPending, orders.StatusDelivered, orders.StatusApproved} {
		list = append(list, newOrder(s, owner, 5))
	}

	var got []orders.Status
	for _, tab := range orders.Tabs() {
		for _, o := range orders.Classify(list, orders.Filter{Tab: tab, SortBy: orders.SortByStatus}) {
			got = append(got, o.Status)
		}
	}
	assert.Equal(t, orders.AllStatuses(), got)

	mixed := []orders.Order{newOrder(orders.StatusApproved, owner, 1), newOrder(orders.StatusPending, owner, 2), newOrder(orders.StatusApproved, owner, 3)}
	sorted := orders.Classify(mixed, orders.Filter{Tab: orders.TabActive, SortBy: orders.SortByStatus})
	require.Len(t, sorted, 3)
	assert.Equal(t, mixed[1].ID, sorted[0].ID)
	assert.Equal(t, mixed[0].ID, sorted[1].ID, "ties keep input order")
	assert.Equal(t, mixed[2].ID, sorted[2].ID)

	desc := orders.Classify(mixed, orders.Filter{Tab: orders.TabActive, SortBy: orders.SortByStatus, SortDir: orders.SortDesc})
	assert.Equal(t, []uuid.UUID{mixed[0].ID, mixed[2].ID, mixed[1].ID}, ids(desc))
}

func TestClassifyDefaultsToDateDescending(t *testing.T) {
	owner := uuid.New()
	early := newOrder(orders.StatusPending, owner, 1)
	late := newOrder(orders.StatusApproved, owner, 20)
	middle := newOrder(orders.StatusPending, owner, 10)
	list := []orders.Order{early, late, middle}

	got := orders.Classify(list, orders.Filter{Tab: orders.TabActive})
	assert.Equal(t, []uuid.UUID{late.ID, middle.ID, early.ID}, ids(got))

	asc := orders.Classify(list, orders.Filter{Tab: orders.TabActive, SortBy: orders.SortByDate, SortDir: orders.SortAsc})
	assert.Equal(t, []uuid.UUID{early.ID, middle.ID, late.ID}, ids(asc))
}

func TestClassifyFiltersStatusAndSearch(t *testing.T) {
	owner := uuid.New()
	a := newOrder(orders.StatusPending, owner, 1)
	a.RequesterName = "Posto São João"
	b := newOrder(orders.StatusApproved, owner, 2)
	b.Subdistrict = "Vila Açores"
	c := newOrder(orders.StatusPending, owner, 3)
	list := []orders.Order{a, b, c}

	pending := orders.Classify(list, orders.Filter{Tab: orders.TabActive, Status: orders.StatusPending})
	assert.ElementsMatch(t, []uuid.UUID{a.ID, c.ID}, ids(pending))

	assert.Equal(t, []uuid.UUID{a.ID}, ids(orders.Classify(list, orders.Filter{Tab: orders.TabActive, Search: "sao joao"})))
	assert.Equal(t, []uuid.UUID{b.ID}, ids(orders.Classify(list, orders.Filter{Tab: orders.TabActive, Search: "ACORES"})))
	assert.Empty(t, orders.Classify(list, orders.Filter{Tab: orders.TabCompleted, Search: "sao"}))
}

func TestClassifyIsPureAndDeterministic(t *testing.T) {
	owner := uuid.New()
	list := []orders.Order{
		newOrder(orders.StatusPending, owner, 3, 1),
		newOrder(orders.StatusApproved, owner, 3, 2),
		newOrder(orders.StatusPending, owner, 1, 3),
	}
	before := make([]uuid.UUID, len(list))
	copy(before, ids(list))

	filter := orders.Filter{Tab: orders.TabActive, SortBy: orders.SortByDate}
	first := orders.Classify(list, filter)
	second := orders.Classify(list, filter)
	assert.Equal(t, first, second)
	assert.Equal(t, before, ids(list))

	first[0].Items[0].Quantity = 99
	assert.NotEqual(t, 99, list[0].Items[0].Quantity)
	assert.NotEqual(t, 99, list[1].Items[0].Quantity)
}

func ids(list []orders.Order) []uuid.UUID {
	out := make([]uuid.UUID, len(list))
	for i, o := range list {
		out[i] = o.ID
	}
	return out
}
