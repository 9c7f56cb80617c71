// Package compile turns a directory of ground-fact source files into a
// fresh pack. Grounded on the teacher's cmd/build-testdb/main.go
// (directory-driven database construction) and
// datalog/storage/database.go's single-writer transaction discipline,
// adapted to spec.md §4.4's per-predicate-file, arity-uniform pipeline.
package compile

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jptmoore/beingdb/encode"
	"github.com/jptmoore/beingdb/fact"
	"github.com/jptmoore/beingdb/pack"
	"go.uber.org/zap"
)

// FailedPredicate describes one predicate file that was rejected for
// mixing arities (spec.md §4.4 step 5).
type FailedPredicate struct {
	Name    string
	Arities []int
	Samples []string
}

// Report summarizes one compile run (spec.md §4.4, "At the end").
type Report struct {
	PredicatesProcessed int
	FactsWritten        int64
	Failed              []FailedPredicate
}

// OK reports whether every predicate file compiled cleanly. Non-OK
// reports must translate to a non-zero process exit status.
func (r Report) OK() bool { return len(r.Failed) == 0 }

// Run compiles every regular file directly inside sourceDir into a
// fresh pack at packDir, overwriting any prior contents there. Every
// direct child of sourceDir is treated as a predicate file regardless
// of extension; subdirectories are not descended into (spec.md §9 open
// question: non-.pl files are first-class predicate sources).
func Run(sourceDir, packDir string, log *zap.Logger) (Report, error) {
	if log == nil {
		log = zap.NewNop()
	}

	unlock, err := acquireLock(packDir)
	if err != nil {
		return Report{}, err
	}
	defer unlock()

	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return Report{}, fmt.Errorf("reading source dir %s: %w", sourceDir, err)
	}

	if err := resetPackDir(packDir); err != nil {
		return Report{}, err
	}

	store, err := pack.Open(packDir, pack.OpenOptions{ReadOnly: false})
	if err != nil {
		return Report{}, fmt.Errorf("opening fresh pack at %s: %w", packDir, err)
	}
	defer store.Close()

	var report Report
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		predicate := strings.TrimSuffix(entry.Name(), ".pl")
		if predicate == "" {
			continue
		}

		written, failure, err := compilePredicateFile(store, filepath.Join(sourceDir, entry.Name()), predicate, log)
		if err != nil {
			return report, fmt.Errorf("compiling predicate %q: %w", predicate, err)
		}

		report.PredicatesProcessed++
		report.FactsWritten += written
		if failure != nil {
			report.Failed = append(report.Failed, *failure)
			continue
		}
		if err := stampDigest(store, predicate, filepath.Join(sourceDir, entry.Name())); err != nil {
			return report, err
		}
	}

	return report, nil
}

// compilePredicateFile implements spec.md §4.4 steps 1-6 for one file.
// On an arity violation it writes zero facts for the predicate and
// returns a FailedPredicate describing the violation.
func compilePredicateFile(store *pack.BadgerStore, path, predicate string, log *zap.Logger) (written int64, failure *FailedPredicate, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, nil, fmt.Errorf("reading %s: %w", path, err)
	}

	lines := strings.Split(string(data), "\n")

	type parsedFact struct {
		predicate string
		arity     int
		line      string
	}

	var parsed []parsedFact
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		f, ok := fact.Parse(line)
		if !ok {
			if strings.HasPrefix(trimmed, "%") || strings.HasPrefix(trimmed, "#") {
				continue
			}
			log.Warn("malformed fact line, skipping", zap.String("predicate", predicate), zap.String("line", trimmed))
			continue
		}
		parsed = append(parsed, parsedFact{predicate: f.Predicate, arity: f.Arity(), line: trimmed})
	}

	arities := make(map[int]bool)
	for _, p := range parsed {
		arities[p.arity] = true
	}

	if len(arities) > 1 {
		distinct := make([]int, 0, len(arities))
		for a := range arities {
			distinct = append(distinct, a)
		}
		sort.Ints(distinct)

		samples := make([]string, 0, 5)
		for _, p := range parsed {
			if len(samples) >= 5 {
				break
			}
			samples = append(samples, p.line)
		}

		log.Error("arity mismatch, writing zero facts for predicate",
			zap.String("predicate", predicate), zap.Ints("arities", distinct))

		return 0, &FailedPredicate{Name: predicate, Arities: distinct, Samples: samples}, nil
	}

	var count int64
	for _, line := range lines {
		f, ok := fact.Parse(line)
		if !ok {
			continue
		}
		pathArgs, blob := encode.Args(f.Args)
		if err := store.Set(predicate, pathArgs, blob); err != nil {
			return count, nil, fmt.Errorf("writing fact for %s: %w", predicate, err)
		}
		count++
	}

	return count, nil, nil
}

// resetPackDir discards any prior contents at dir so the pack opens
// fresh (spec.md §4.4, "opened in fresh mode").
func resetPackDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clearing pack dir %s: %w", dir, err)
	}
	return os.MkdirAll(dir, 0o755)
}

// stampDigest records a SHA-256 digest of the source file as pack
// metadata, letting operators verify a pack was built from a specific
// source snapshot.
func stampDigest(store *pack.BadgerStore, predicate, sourcePath string) error {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return fmt.Errorf("hashing %s: %w", sourcePath, err)
	}
	sum := sha256.Sum256(data)
	return store.SetMeta("predicate/"+predicate+".digest", []byte(hex.EncodeToString(sum[:])))
}

// acquireLock takes a filesystem lock at <pack_dir>.lock for the
// duration of one compile run, guarding against the "programmer error"
// of two concurrent compiles against the same pack directory
// (spec.md §5, "Compilation is single-writer").
func acquireLock(packDir string) (release func(), err error) {
	lockPath := packDir + ".lock"
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("pack %s is already being compiled (lock file %s exists): %w", packDir, lockPath, err)
	}
	return func() {
		f.Close()
		os.Remove(lockPath)
	}, nil
}
