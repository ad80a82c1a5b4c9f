package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/crossbind/internal/ir"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ReadBuild returns a build with all of its callables and overloads.
// Callables are ordered by name, overloads by declaration position.
func (s *Store) ReadBuild(ctx context.Context, modelHash string) (Build, error) {
	var b Build
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT model_hash, ir_version, compiler_version, source, callable_count
		FROM builds
		WHERE model_hash = ?
	`, modelHash).Scan(&b.ModelHash, &b.IRVersion, &b.CompilerVersion, &b.Source, &count)
	if errors.Is(err, sql.ErrNoRows) {
		return Build{}, fmt.Errorf("read build %s: %w", modelHash, ErrNotFound)
	}
	if err != nil {
		return Build{}, fmt.Errorf("read build %s: %w", modelHash, err)
	}

	names, err := s.callableNames(ctx, modelHash)
	if err != nil {
		return Build{}, err
	}
	for _, name := range names {
		c, err := s.ReadCallable(ctx, modelHash, name)
		if err != nil {
			return Build{}, err
		}
		b.Callables = append(b.Callables, c)
	}
	return b, nil
}

// ListBuilds returns the model hashes of every stored build, sorted.
func (s *Store) ListBuilds(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT model_hash FROM builds ORDER BY model_hash COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list builds: %w", err)
	}
	defer rows.Close()

	hashes := []string{}
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		hashes = append(hashes, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate builds: %w", err)
	}
	return hashes, nil
}

func (s *Store) callableNames(ctx context.Context, modelHash string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM callables
		WHERE model_hash = ?
		ORDER BY name COLLATE BINARY ASC
	`, modelHash)
	if err != nil {
		return nil, fmt.Errorf("query callables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan callable: %w", err)
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate callables: %w", err)
	}
	return names, nil
}

// ReadCallable returns one callable of a build with its overloads.
func (s *Store) ReadCallable(ctx context.Context, modelHash, name string) (Callable, error) {
	var c Callable
	var reverse int
	err := s.db.QueryRowContext(ctx, `
		SELECT name, tree_hash, rendered, depth, has_reverse
		FROM callables
		WHERE model_hash = ? AND name = ?
	`, modelHash, name).Scan(&c.Name, &c.TreeHash, &c.Rendered, &c.Depth, &reverse)
	if errors.Is(err, sql.ErrNoRows) {
		return Callable{}, fmt.Errorf("read callable %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return Callable{}, fmt.Errorf("read callable %s: %w", name, err)
	}
	c.HasReverse = reverse != 0

	rows, err := s.db.QueryContext(ctx, `
		SELECT position, overload_hash, minimal, signature, expanded, kind
		FROM overloads
		WHERE model_hash = ? AND callable = ?
		ORDER BY position ASC
	`, modelHash, name)
	if err != nil {
		return Callable{}, fmt.Errorf("query overloads: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ov Overload
		var expanded, kind string
		if err := rows.Scan(&ov.Position, &ov.Hash, &ov.Minimal, &ov.Signature, &expanded, &kind); err != nil {
			return Callable{}, fmt.Errorf("scan overload: %w", err)
		}
		if ov.Expanded, err = unmarshalSignatures(expanded); err != nil {
			return Callable{}, fmt.Errorf("overload %s: %w", ov.Minimal, err)
		}
		ov.Kind = ir.FunctionKind(kind)
		c.Overloads = append(c.Overloads, ov)
	}
	if err := rows.Err(); err != nil {
		return Callable{}, fmt.Errorf("iterate overloads: %w", err)
	}
	return c, nil
}

// FindOverload looks up an overload by its content hash in a build.
func (s *Store) FindOverload(ctx context.Context, modelHash, overloadHash string) (string, Overload, error) {
	var callable, expanded, kind string
	var ov Overload
	err := s.db.QueryRowContext(ctx, `
		SELECT callable, position, overload_hash, minimal, signature, expanded, kind
		FROM overloads
		WHERE model_hash = ? AND overload_hash = ?
		ORDER BY callable COLLATE BINARY ASC, position ASC
		LIMIT 1
	`, modelHash, overloadHash).Scan(&callable, &ov.Position, &ov.Hash, &ov.Minimal, &ov.Signature, &expanded, &kind)
	if errors.Is(err, sql.ErrNoRows) {
		return "", Overload{}, fmt.Errorf("find overload %s: %w", overloadHash, ErrNotFound)
	}
	if err != nil {
		return "", Overload{}, fmt.Errorf("find overload %s: %w", overloadHash, err)
	}
	if ov.Expanded, err = unmarshalSignatures(expanded); err != nil {
		return "", Overload{}, err
	}
	ov.Kind = ir.FunctionKind(kind)
	return callable, ov, nil
}
