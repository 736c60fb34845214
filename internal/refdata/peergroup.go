package refdata

import (
	"fmt"
	"strings"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// PeerGrouper assigns a customer to a peer group. A customer belongs to at
// most one group under the active strategy.
type PeerGrouper interface {
	// GroupFor returns the peer-group label for a customer and whether the
	// customer is a member of any group.
	GroupFor(customer string) (string, bool)
}

// NewPeerGrouper builds the grouper selected by the engine configuration.
func NewPeerGrouper(cfg domain.EngineConfig, refs *domain.ReferenceSet) (PeerGrouper, error) {
	switch cfg.PeerGroupStrategy {
	case domain.PeerGroupMapping, "":
		name := cfg.ActiveMapping
		if name == "" {
			name = domain.DefaultMappingName
		}
		return newMappingGrouper(refs, name)

	case domain.PeerGroupNamed:
		if cfg.ActiveMapping == "" {
			return nil, fmt.Errorf("peer-group strategy %q requires activeMapping", cfg.PeerGroupStrategy)
		}
		return newMappingGrouper(refs, cfg.ActiveMapping)

	case domain.PeerGroupRule:
		if cfg.RuleMatch == "" {
			return nil, fmt.Errorf("peer-group strategy %q requires ruleMatch", cfg.PeerGroupStrategy)
		}
		label := cfg.RuleLabel
		if label == "" {
			label = domain.DefaultRuleLabel
		}
		return &ruleGrouper{match: strings.ToLower(cfg.RuleMatch), label: label}, nil

	default:
		return nil, fmt.Errorf("unsupported peer-group strategy: %s", cfg.PeerGroupStrategy)
	}
}

// mappingGrouper resolves membership from one named customer -> group table.
type mappingGrouper struct {
	groups map[string]string
}

func newMappingGrouper(refs *domain.ReferenceSet, name string) (*mappingGrouper, error) {
	rows, ok := refs.PeerMappings[name]
	if !ok {
		return nil, fmt.Errorf("peer-group mapping %q not found", name)
	}

	groups := make(map[string]string, len(rows))
	for _, r := range rows {
		if r.Customer == "" || r.PeerGroup == "" {
			continue
		}
		// First occurrence wins so that repeated rows cannot flip a
		// customer between groups depending on table order.
		if _, exists := groups[r.Customer]; !exists {
			groups[r.Customer] = r.PeerGroup
		}
	}

	return &mappingGrouper{groups: groups}, nil
}

func (g *mappingGrouper) GroupFor(customer string) (string, bool) {
	group, ok := g.groups[customer]
	return group, ok
}

// ruleGrouper derives a fixed group from a case-insensitive name match,
// e.g. every customer containing "modern trade" joins that group.
type ruleGrouper struct {
	match string
	label string
}

func (g *ruleGrouper) GroupFor(customer string) (string, bool) {
	if strings.Contains(strings.ToLower(customer), g.match) {
		return g.label, true
	}
	return "", false
}
