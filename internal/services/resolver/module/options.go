package module

import (
	"ngmeta/internal/platform/config"
	"ngmeta/internal/services/resolver/service"
)

// Options holds configuration for the resolver
type Options struct {
	Namespace    string
	DeleteTypes  []string
	FetchDetails bool
	Pipeline     service.Config
}

// FromConfig reads resolver options with the NGMETA_RESOLVER_ prefix
func FromConfig(cfg config.Conf) Options {
	r := cfg.Prefix("NGMETA_RESOLVER_")
	return Options{
		Namespace:    r.MayString("NAMESPACE", "registration"),
		DeleteTypes:  r.MayCSV("DELETE_TYPES", nil),
		FetchDetails: r.MayBool("FETCH_DETAILS", false),
		Pipeline: service.Config{
			MaxAggregate:        r.MayInt("MAX_AGGREGATE", service.DefaultMaxAggregate),
			MaxAggregateTriples: r.MayInt("MAX_TRIPLES", 0),
			QueueDepth:          r.MayInt("QUEUE_DEPTH", service.DefaultQueueDepth),
			MergeWorkers:        r.MayInt("WORKERS", service.DefaultMergeWorkers),
		},
	}
}
