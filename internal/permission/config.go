package permission

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileTable is the YAML shape of a permission override file.
//
//	agents:
//	  webdev: [filesystem, shell, git]
//	approval_operations:
//	  - git_push
type fileTable struct {
	Agents             map[string][]string `yaml:"agents"`
	ApprovalOperations []string            `yaml:"approval_operations"`
}

// LoadFile replaces the gate's tables with the contents of a YAML override
// file. Missing sections keep their defaults; per-task approval grants are
// preserved.
func (g *Gate) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read permission file: %w", err)
	}

	var ft fileTable
	if err := yaml.Unmarshal(data, &ft); err != nil {
		return fmt.Errorf("parse permission file: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if ft.Agents != nil {
		agents := make(map[string]map[string]bool, len(ft.Agents))
		for agent, tools := range ft.Agents {
			set := make(map[string]bool, len(tools))
			for _, t := range tools {
				set[t] = true
			}
			agents[agent] = set
		}
		g.agents = agents
	}
	if ft.ApprovalOperations != nil {
		ops := make(map[string]bool, len(ft.ApprovalOperations))
		for _, op := range ft.ApprovalOperations {
			ops[op] = true
		}
		g.approvalOps = ops
	}
	return nil
}
