package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/printpal-io/printpal-go"
)

var imageExtensions = []string{".png", ".jpg", ".jpeg", ".webp"}

// ErrNoImages reports that the inputs contained no supported images.
var ErrNoImages = errors.New("no supported images found")

// IsImage reports whether path has a supported image extension.
func IsImage(path string) bool {
	return slices.Contains(imageExtensions, strings.ToLower(filepath.Ext(path)))
}

// CollectImages expands inputs into a deduplicated list of image files.
// Directories contribute their supported images (not recursively, sorted by
// name). Files named explicitly are kept regardless of extension so the
// service can reject them with a proper error.
func CollectImages(inputs []string) ([]string, error) {
	var (
		out  []string
		seen = make(map[string]struct{})
	)
	add := func(path string) {
		key := path
		if abs, err := filepath.Abs(path); err == nil {
			key = abs
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, path)
	}

	for _, input := range inputs {
		info, err := os.Stat(input)
		if err != nil {
			return nil, fmt.Errorf("inspect %s: %w", input, err)
		}
		if !info.IsDir() {
			add(input)
			continue
		}
		entries, err := os.ReadDir(input)
		if err != nil {
			return nil, fmt.Errorf("read directory %s: %w", input, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !IsImage(entry.Name()) {
				continue
			}
			add(filepath.Join(input, entry.Name()))
		}
	}
	if len(out) == 0 {
		return nil, ErrNoImages
	}
	return out, nil
}

// CreditsNeeded returns the credit cost of generating count models at quality.
func CreditsNeeded(count int, quality printpal.Quality) int {
	if count <= 0 {
		return 0
	}
	return count * quality.CreditCost()
}

// CreditSource reports the account balance.
type CreditSource interface {
	Credits(ctx context.Context) (*printpal.CreditsInfo, error)
}

// CheckCredits fails with an insufficient-credits error when the balance
// cannot cover count generations at quality.
func CheckCredits(ctx context.Context, source CreditSource, count int, quality printpal.Quality) (needed, available int, err error) {
	needed = CreditsNeeded(count, quality)
	info, err := source.Credits(ctx)
	if err != nil {
		return needed, 0, err
	}
	available = info.Credits
	if available < needed {
		return needed, available, &printpal.Error{
			Kind:             printpal.KindInsufficientCredits,
			Message:          fmt.Sprintf("batch of %d %s generations", count, quality),
			CreditsRequired:  &needed,
			CreditsAvailable: &available,
		}
	}
	return needed, available, nil
}
