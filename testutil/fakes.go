// Package testutil holds fakes shared by package tests.
package testutil

import (
	"context"
	"sync"

	"cluster-dashboard-go/clustering"
	"cluster-dashboard-go/models"
)

// FakeService is a clustering service whose replies are set per test.
type FakeService struct {
	OfficialFunc   func(ctx context.Context) (*clustering.OfficialResponse, error)
	PlaygroundFunc func(ctx context.Context, k int) (*clustering.PlaygroundResponse, error)
	PairwiseFunc   func(ctx context.Context, x, y string, k int) (*clustering.PairwiseResponse, error)

	mu    sync.Mutex
	calls int
}

func (f *FakeService) record() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

// CallCount returns how many requests reached the fake.
func (f *FakeService) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FakeService) Official(ctx context.Context) (*clustering.OfficialResponse, error) {
	f.record()
	if f.OfficialFunc == nil {
		return &clustering.OfficialResponse{}, nil
	}
	return f.OfficialFunc(ctx)
}

func (f *FakeService) Playground(ctx context.Context, k int) (*clustering.PlaygroundResponse, error) {
	f.record()
	if f.PlaygroundFunc == nil {
		return &clustering.PlaygroundResponse{}, nil
	}
	return f.PlaygroundFunc(ctx, k)
}

func (f *FakeService) Pairwise(ctx context.Context, x, y string, k int) (*clustering.PairwiseResponse, error) {
	f.record()
	if f.PairwiseFunc == nil {
		return &clustering.PairwiseResponse{}, nil
	}
	return f.PairwiseFunc(ctx, x, y, k)
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Student builds a student with the attributes most tests care about.
func Student(id, municipality string, gwa, income float64, cluster int) models.Student {
	return models.Student{
		ID:           id,
		FirstName:    "Student",
		LastName:     id,
		Sex:          "Female",
		Program:      "BSIT",
		Municipality: municipality,
		GWA:          Float(gwa),
		Income:       Float(income),
		Cluster:      Int(cluster),
	}
}
