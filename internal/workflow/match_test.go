package workflow

import (
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/grocer/services/assistant/internal/models"
)

func TestMatchScoreSubstring(t *testing.T) {
	// Containment in either direction is a full match
	score, _ := matchScore("milk", "Whole Milk 1L")
	require.Equal(t, 1.0, score)

	score, _ = matchScore("Whole Milk 1L extra", "Whole Milk 1L")
	require.Equal(t, 1.0, score)

	// Case-insensitive
	score, _ = matchScore("MILK", "whole milk")
	require.Equal(t, 1.0, score)
}

func TestMatchScoreJaccard(t *testing.T) {
	// {brown, bread} vs {bread, white}: overlap 1, union 3
	score, overlap := matchScore("brown bread", "bread white")
	require.InDelta(t, 1.0/3.0, score, 1e-9)
	require.Equal(t, 1, overlap)

	// Disjoint token sets score zero
	score, overlap = matchScore("milk", "eggs")
	require.Equal(t, 0.0, score)
	require.Equal(t, 0, overlap)
}

func TestMatchScoreEmptyInput(t *testing.T) {
	score, _ := matchScore("", "milk")
	require.Equal(t, 0.0, score)

	score, _ = matchScore("milk", "  ")
	require.Equal(t, 0.0, score)
}

func TestBestMatchThreshold(t *testing.T) {
	candidates := []models.Product{
		{ProductID: "P1", Name: "Sourdough Rye Loaf Special"},
	}

	// One shared token out of five unioned is below the 0.5 cutoff
	require.Nil(t, bestMatch("rye crackers", candidates))
}

func TestBestMatchPrefersHigherScore(t *testing.T) {
	candidates := []models.Product{
		{ProductID: "P1", Name: "Almond Milk"},
		{ProductID: "P2", Name: "Milk"},
	}

	got := bestMatch("milk", candidates)
	require.NotNil(t, got)
	// Both contain "milk" so both score 1; the alphabetical tie-break
	// picks Almond Milk deterministically
	require.Equal(t, "P1", got.ProductID)

	// Same inputs, same outcome
	again := bestMatch("milk", candidates)
	require.Equal(t, got.ProductID, again.ProductID)
}

func TestBestMatchTieBreaksOnOverlap(t *testing.T) {
	candidates := []models.Product{
		{ProductID: "P1", Name: "Free Range Eggs"},
		{ProductID: "P2", Name: "Range Cooker"},
	}

	got := bestMatch("free range eggs", candidates)
	require.NotNil(t, got)
	require.Equal(t, "P1", got.ProductID)
}

func TestNearestCategory(t *testing.T) {
	candidates := []models.Product{
		{ProductID: "P1", Name: "Oat Milk", Category: "dairy-alternatives"},
		{ProductID: "P2", Name: "Bananas", Category: "fruit"},
	}

	require.Equal(t, "dairy-alternatives", nearestCategory("oat drink", candidates))

	// No token overlap anywhere means no category can be inferred
	require.Equal(t, "", nearestCategory("washing powder", candidates))
}
