// Package stage implements the pipeline stages: gather, sort, match, zone
// and export. Each stage is exposed twice, as a plain function for the
// one-shot commands and as a registry.Runner for pipeline execution.
package stage

import (
	"github.com/Kaustubhraj123/hiperseis/internal/registry"
)

// Register wires every stage runner into the registry.
func Register(r *registry.Registry) {
	r.Register(&GatherRunner{})
	r.Register(&SortRunner{})
	r.Register(&MatchRunner{})
	r.Register(&ZoneRunner{})
	r.Register(&ExportRunner{})
}
