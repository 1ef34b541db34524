package ledger

import (
	"context"
	"sort"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// EntityDependency
// ---------------------------------------------------------------------------

// EntityDependency declares that one entity type must be synced before
// another. Invoices depend on customers and items: a customer referenced by
// an invoice has to exist in the ledger system before the invoice can.
// Optional edges (IsRequired false) influence ordering only; they never
// hold a dependent back when the dependency is behind or failing.
type EntityDependency struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	EntityType     EntityType
	DependsOn      EntityType
	IsRequired     bool
}

// DefaultDependencies returns the standard accounting dependency edges used
// when an organization has no custom configuration. Referential edges are
// required; the inventory edge is ordering-only since stock levels tolerate
// a missing item until the next pass.
func DefaultDependencies(orgID uuid.UUID) []EntityDependency {
	edges := []struct {
		entity    EntityType
		dependsOn EntityType
		required  bool
	}{
		{EntityTypeCustomer, EntityTypeAccount, true},
		{EntityTypeVendor, EntityTypeAccount, true},
		{EntityTypeItem, EntityTypeAccount, true},
		{EntityTypeInvoice, EntityTypeCustomer, true},
		{EntityTypeInvoice, EntityTypeItem, true},
		{EntityTypeBill, EntityTypeVendor, true},
		{EntityTypeBill, EntityTypeItem, true},
		{EntityTypePayment, EntityTypeInvoice, true},
		{EntityTypeSalesOrder, EntityTypeCustomer, true},
		{EntityTypeSalesOrder, EntityTypeItem, true},
		{EntityTypePurchaseOrder, EntityTypeVendor, true},
		{EntityTypePurchaseOrder, EntityTypeItem, true},
		{EntityTypeInventory, EntityTypeItem, false},
	}
	deps := make([]EntityDependency, 0, len(edges))
	for _, e := range edges {
		deps = append(deps, EntityDependency{
			ID:             uuid.New(),
			OrganizationID: orgID,
			EntityType:     e.entity,
			DependsOn:      e.dependsOn,
			IsRequired:     e.required,
		})
	}
	return deps
}

// ---------------------------------------------------------------------------
// DependencyGraph
// ---------------------------------------------------------------------------

// DependencyGraph is an in-memory view of an organization's dependency
// edges, built per coordinator pass. It is not safe for concurrent writes.
type DependencyGraph struct {
	// edges[t] holds the types t depends on
	edges map[EntityType][]EntityType
	// required[t] holds the subset of edges[t] a coordinator pass must
	// settle before t becomes eligible
	required map[EntityType][]EntityType
	nodes    map[EntityType]struct{}
}

// NewDependencyGraph builds a graph from persisted dependency rows. Every
// syncable entity type is a node even when it has no edges.
func NewDependencyGraph(deps []EntityDependency) *DependencyGraph {
	g := &DependencyGraph{
		edges:    make(map[EntityType][]EntityType),
		required: make(map[EntityType][]EntityType),
		nodes:    make(map[EntityType]struct{}),
	}
	for _, t := range AllEntityTypes() {
		g.nodes[t] = struct{}{}
	}
	for _, d := range deps {
		g.nodes[d.EntityType] = struct{}{}
		g.nodes[d.DependsOn] = struct{}{}
		g.edges[d.EntityType] = append(g.edges[d.EntityType], d.DependsOn)
		if d.IsRequired {
			g.required[d.EntityType] = append(g.required[d.EntityType], d.DependsOn)
		}
	}
	return g
}

// DependenciesOf returns every type the given type depends on, required or
// not. All edges participate in topological ordering.
func (g *DependencyGraph) DependenciesOf(t EntityType) []EntityType {
	return g.edges[t]
}

// RequiredDependenciesOf returns only the required edges, the ones that gate
// readiness rather than merely suggest an order.
func (g *DependencyGraph) RequiredDependenciesOf(t EntityType) []EntityType {
	return g.required[t]
}

// TopologicalOrder returns entity types such that every type appears after
// all of its dependencies. Ties are broken alphabetically so the order is
// deterministic. A cycle aborts the walk with a *CycleError naming the
// offending path.
func (g *DependencyGraph) TopologicalOrder() ([]EntityType, error) {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[EntityType]int, len(g.nodes))
	order := make([]EntityType, 0, len(g.nodes))

	nodes := make([]EntityType, 0, len(g.nodes))
	for t := range g.nodes {
		nodes = append(nodes, t)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })

	var visit func(t EntityType, stack []EntityType) error
	visit = func(t EntityType, stack []EntityType) error {
		switch state[t] {
		case done:
			return nil
		case visiting:
			// close the cycle path back to t
			path := []EntityType{t}
			for i := len(stack) - 1; i >= 0; i-- {
				path = append(path, stack[i])
				if stack[i] == t {
					break
				}
			}
			return &CycleError{Path: path}
		}
		state[t] = visiting
		deps := append([]EntityType(nil), g.edges[t]...)
		sort.Slice(deps, func(i, j int) bool { return deps[i] < deps[j] })
		for _, d := range deps {
			if err := visit(d, append(stack, t)); err != nil {
				return err
			}
		}
		state[t] = done
		order = append(order, t)
		return nil
	}

	for _, t := range nodes {
		if err := visit(t, nil); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// ---------------------------------------------------------------------------
// DependencyRepository port
// ---------------------------------------------------------------------------

// DependencyRepository is the port for persisted dependency configuration.
type DependencyRepository interface {
	// ListByOrganization returns the organization's edges, falling back to
	// DefaultDependencies when none are configured.
	ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]EntityDependency, error)

	// Replace swaps the organization's edge set atomically after the new
	// set passes a cycle check.
	Replace(ctx context.Context, orgID uuid.UUID, deps []EntityDependency) error
}
