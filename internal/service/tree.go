package service

import (
	"context"

	appErrors "github.com/paperdesk/paperdesk/pkg/errors"
)

// maxTreeDepth caps tree walks so a corrupted parent chain cannot loop or
// recurse unbounded.
const maxTreeDepth = 64

type childResolver func(ctx context.Context, id int64) ([]int64, error)

// collectDescendants returns the node and every node below it, breadth first.
// A visited set guards against cycles in the stored parent pointers.
func collectDescendants(ctx context.Context, rootID int64, children childResolver) ([]int64, error) {
	visited := map[int64]bool{rootID: true}
	result := []int64{rootID}
	frontier := []int64{rootID}

	for depth := 0; len(frontier) > 0; depth++ {
		if depth >= maxTreeDepth {
			return nil, appErrors.Clone(appErrors.ErrInvalidOperation, "category tree exceeds maximum depth")
		}
		var next []int64
		for _, id := range frontier {
			childIDs, err := children(ctx, id)
			if err != nil {
				return nil, err
			}
			for _, childID := range childIDs {
				if visited[childID] {
					continue
				}
				visited[childID] = true
				result = append(result, childID)
				next = append(next, childID)
			}
		}
		frontier = next
	}
	return result, nil
}

type parentResolver func(ctx context.Context, id int64) (*int64, error)

// collectAncestors returns the node and its parent chain up to the root.
func collectAncestors(ctx context.Context, nodeID int64, parent parentResolver) ([]int64, error) {
	visited := map[int64]bool{nodeID: true}
	result := []int64{nodeID}

	current := nodeID
	for depth := 0; depth < maxTreeDepth; depth++ {
		parentID, err := parent(ctx, current)
		if err != nil {
			return nil, err
		}
		if parentID == nil {
			return result, nil
		}
		if visited[*parentID] {
			return nil, appErrors.Clone(appErrors.ErrInvalidOperation, "category tree contains a cycle")
		}
		visited[*parentID] = true
		result = append(result, *parentID)
		current = *parentID
	}
	return nil, appErrors.Clone(appErrors.ErrInvalidOperation, "category tree exceeds maximum depth")
}
