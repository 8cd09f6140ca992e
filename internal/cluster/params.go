package cluster

import (
	"encoding/json"
	"fmt"

	"github.com/vietdv277/cirrus/pkg/types"
)

// ParseParams decodes a params document
func ParseParams(data []byte) (*types.ClusterParams, error) {
	var p types.ClusterParams
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode params: %w", err)
	}
	if p.Repositories == nil {
		p.Repositories = []types.RepoConfig{}
	}
	return &p, nil
}

// MergeParams applies a partial update to a stored params document.
// Set fields overwrite, the repository list is replaced wholesale, and any
// field the update does not name is carried over unchanged, including
// fields this version does not know about.
func MergeParams(raw []byte, upd *types.ClusterUpdate) ([]byte, error) {
	doc := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode params: %w", err)
	}

	set := func(key string, v interface{}) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", key, err)
		}
		doc[key] = data
		return nil
	}

	if upd != nil {
		if upd.Name != nil {
			if err := set("name", *upd.Name); err != nil {
				return nil, err
			}
		}
		if upd.Region != nil {
			if err := set("region", *upd.Region); err != nil {
				return nil, err
			}
		}
		if upd.Repositories != nil {
			repos := *upd.Repositories
			if repos == nil {
				repos = []types.RepoConfig{}
			}
			if err := set("repositories", repos); err != nil {
				return nil, err
			}
		}
	}

	out, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode params: %w", err)
	}
	return out, nil
}
