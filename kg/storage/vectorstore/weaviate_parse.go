// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package vectorstore

import (
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"

	"github.com/kraklabs/kgsync/kg/storage"
)

// firstAdditionalID pulls the Weaviate-internal object UUID out of a
// Get query response's `_additional.id`, used before an upsert so we
// can issue a delete-then-create instead of relying on Weaviate's own
// (less predictable) dedup behavior.
func firstAdditionalID(resp *graphql.GraphQLResponse, cls string) string {
	get, ok := resp.Data["Get"].(map[string]any)
	if !ok {
		return ""
	}
	objs, ok := get[cls].([]any)
	if !ok || len(objs) == 0 {
		return ""
	}
	obj, ok := objs[0].(map[string]any)
	if !ok {
		return ""
	}
	additional, ok := obj["_additional"].(map[string]any)
	if !ok {
		return ""
	}
	id, _ := additional["id"].(string)
	return id
}

func parseSearchResults(resp *graphql.GraphQLResponse, cls string) []storage.VectorSearchResult {
	get, ok := resp.Data["Get"].(map[string]any)
	if !ok {
		return nil
	}
	objs, ok := get[cls].([]any)
	if !ok {
		return nil
	}
	out := make([]storage.VectorSearchResult, 0, len(objs))
	for _, raw := range objs {
		obj, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		entityID, _ := obj["entityId"].(string)
		payload := map[string]any{
			"entityId": entityID,
			"kind":     obj["kind"],
			"path":     obj["path"],
			"language": obj["language"],
		}
		var score float32
		if additional, ok := obj["_additional"].(map[string]any); ok {
			if c, ok := additional["certainty"].(float64); ok {
				score = float32(c)
			}
		}
		out = append(out, storage.VectorSearchResult{
			Record: storage.VectorRecord{ID: entityID, Payload: payload},
			Score:  score,
		})
	}
	return out
}
