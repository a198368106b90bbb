package library

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ChrisMcGann/pepkey/pkg/core"
	"github.com/ChrisMcGann/pepkey/pkg/decoy"
)

// ErrNoSpectra is returned when there are no peptides to compute spectra for.
var ErrNoSpectra = errors.New("no spectra to generate")

// chunks is the number of progress steps used by GenerateSpectra
const chunks = 1000

// GenerateSpectra computes the theoretical spectrum of every peptide, in order.
// Work is split into about a thousand chunks; progress is reported after each.
func GenerateSpectra(peptides []string, masses *core.MassTable, strategy core.Strategy, progress core.Progress) ([]*core.TheoreticalSpectrum, error) {
	n := len(peptides)
	if n == 0 {
		return nil, ErrNoSpectra
	}
	if masses == nil {
		masses = core.NewMassTable(nil)
	}
	step := (n + chunks - 1) / chunks

	jobs := make(chan int)
	spectra := make([]*core.TheoreticalSpectrum, n)

	var (
		mu       sync.Mutex
		done     int
		firstErr error
	)

	workers := strategy.PoolSize((n + step - 1) / step)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(table *core.MassTable) {
			defer wg.Done()
			for start := range jobs {
				end := start + step
				if end > n {
					end = n
				}
				var err error
				for i := start; i < end && err == nil; i++ {
					spectra[i], err = table.ComputeSpectrum(peptides[i], decoy.Parse(peptides[i]))
				}

				mu.Lock()
				if err != nil && firstErr == nil {
					firstErr = err
				}
				done += end - start
				progress.Report(float64(done) / float64(n))
				mu.Unlock()
			}
		}(masses.Clone())
	}

	for start := 0; start < n; start += step {
		jobs <- start
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, fmt.Errorf("failed to compute spectra: %w", firstErr)
	}
	return spectra, nil
}
