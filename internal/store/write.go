package store

import (
	"context"
	"fmt"
)

// WriteBuild stores a build and all of its callables and overloads in one
// transaction. Uses ON CONFLICT DO NOTHING throughout: a build with the same
// model hash is already complete, so rewriting it changes nothing.
func (s *Store) WriteBuild(ctx context.Context, b Build) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write build: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO builds
		(model_hash, ir_version, compiler_version, source, callable_count)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(model_hash) DO NOTHING
	`,
		b.ModelHash,
		b.IRVersion,
		b.CompilerVersion,
		b.Source,
		len(b.Callables),
	)
	if err != nil {
		return fmt.Errorf("write build: %w", err)
	}

	for _, c := range b.Callables {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO callables
			(model_hash, name, tree_hash, rendered, depth, has_reverse)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(model_hash, name) DO NOTHING
		`,
			b.ModelHash,
			c.Name,
			c.TreeHash,
			c.Rendered,
			c.Depth,
			boolToInt(c.HasReverse),
		)
		if err != nil {
			return fmt.Errorf("write callable %s: %w", c.Name, err)
		}

		for _, ov := range c.Overloads {
			expanded, err := marshalSignatures(ov.Expanded)
			if err != nil {
				return fmt.Errorf("write overload %s: %w", ov.Minimal, err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO overloads
				(model_hash, callable, position, overload_hash, minimal, signature, expanded, kind)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(model_hash, callable, position) DO NOTHING
			`,
				b.ModelHash,
				c.Name,
				ov.Position,
				ov.Hash,
				ov.Minimal,
				ov.Signature,
				expanded,
				string(ov.Kind),
			)
			if err != nil {
				return fmt.Errorf("write overload %s: %w", ov.Minimal, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write build: commit: %w", err)
	}
	return nil
}
