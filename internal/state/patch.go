package state

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"

	"github.com/dukerupert/familyhub/internal/auth"
	"github.com/dukerupert/familyhub/internal/docstore"
	"github.com/dukerupert/familyhub/internal/mirror"
	"github.com/dukerupert/familyhub/internal/model"
)

// Patch is a partial update: top-level document fields and their new
// values. A nil value clears the field.
type Patch map[string]any

func (p Patch) check(allowed []string) error {
	var bad []string
	for k := range p {
		if !slices.Contains(allowed, k) {
			bad = append(bad, k)
		}
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return &model.ValidationError{Field: strings.Join(bad, ","), Message: "cannot be updated"}
	}
	return nil
}

// updateDoc applies patch to the document in one transaction: the current
// document is decoded and passed to authorize, the merged result is
// validated, and the whole document is written back. authorize may read
// other documents through tx.
func updateDoc[T any, PT mirror.Validator[T]](
	ctx context.Context,
	a *App,
	collection, id string,
	patch Patch,
	allowed []string,
	authorize func(tx docstore.Tx, current T) error,
) (T, error) {
	var result T
	if err := patch.check(allowed); err != nil {
		return result, err
	}

	err := a.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		doc, err := tx.Get(collection, id)
		if err != nil {
			return notFound(err, collection, id)
		}
		current, err := mirror.Decode[T, PT](doc)
		if err != nil {
			return fmt.Errorf("stored %s is malformed: %w", collection, err)
		}
		if authorize != nil {
			if err := authorize(tx, current); err != nil {
				return err
			}
		}

		merged := make(map[string]any, len(doc.Data)+len(patch)+1)
		maps.Copy(merged, doc.Data)
		for k, v := range patch {
			if v == nil {
				delete(merged, k)
				continue
			}
			merged[k] = v
		}
		merged["updatedAt"] = a.now().UTC()

		next, err := mirror.Decode[T, PT](docstore.Document{ID: id, Data: merged})
		if err != nil {
			return unwrapValidation(err)
		}
		data, err := docstore.Encode(next)
		if err != nil {
			return err
		}
		if err := tx.Set(collection, id, data); err != nil {
			return fmt.Errorf("update %s/%s: %w", collection, id, err)
		}
		result = next
		return nil
	})
	return result, err
}

// deleteDoc removes a document after authorize approves its current state.
func deleteDoc[T any, PT mirror.Validator[T]](
	ctx context.Context,
	a *App,
	collection, id string,
	authorize func(tx docstore.Tx, current T) error,
) error {
	return a.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		doc, err := tx.Get(collection, id)
		if err != nil {
			return notFound(err, collection, id)
		}
		if authorize != nil {
			current, err := mirror.Decode[T, PT](doc)
			if err != nil {
				return fmt.Errorf("stored %s is malformed: %w", collection, err)
			}
			if err := authorize(tx, current); err != nil {
				return err
			}
		}
		return tx.Delete(collection, id)
	})
}

// addDoc validates v and stores it under a generated id.
func addDoc[T any, PT mirror.Validator[T]](ctx context.Context, a *App, collection string, v T) (string, T, error) {
	if err := PT(&v).Validate(); err != nil {
		return "", v, err
	}
	data, err := docstore.Encode(v)
	if err != nil {
		return "", v, err
	}
	id, err := a.store.Add(ctx, collection, data)
	if err != nil {
		return "", v, fmt.Errorf("add %s: %w", collection, err)
	}
	return id, v, nil
}

func notFound(err error, collection, id string) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("%w: %s %s", ErrNotFound, collection, id)
	}
	return err
}

// unwrapValidation surfaces the ValidationError inside a decode failure.
func unwrapValidation(err error) error {
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		return ve
	}
	return &model.ValidationError{Field: "document", Message: err.Error()}
}

// requireManager lets only admins and parents do what.
func requireManager(ac auth.AuthContext, what string) error {
	if !auth.CanManageTasks(ac.Role) {
		return fmt.Errorf("%w: only admins and parents can %s", ErrForbidden, what)
	}
	return nil
}

func requireProfile(ac auth.AuthContext) error {
	if ac.ProfileID == "" {
		return fmt.Errorf("%w: no profile is logged in", ErrForbidden)
	}
	return nil
}

// mutateDoc reads the document, lets fn change the decoded value, and
// writes the whole validated result back in the same transaction.
func mutateDoc[T any, PT mirror.Validator[T]](
	ctx context.Context,
	a *App,
	collection, id string,
	fn func(v *T) error,
) (T, error) {
	var result T
	err := a.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		doc, err := tx.Get(collection, id)
		if err != nil {
			return notFound(err, collection, id)
		}
		v, err := mirror.Decode[T, PT](doc)
		if err != nil {
			return fmt.Errorf("stored %s is malformed: %w", collection, err)
		}
		if err := fn(&v); err != nil {
			return err
		}
		if err := PT(&v).Validate(); err != nil {
			return err
		}
		data, err := docstore.Encode(v)
		if err != nil {
			return err
		}
		data["updatedAt"] = a.now().UTC()
		if err := tx.Set(collection, id, data); err != nil {
			return fmt.Errorf("update %s/%s: %w", collection, id, err)
		}
		result, err = mirror.Decode[T, PT](docstore.Document{ID: id, Data: data})
		return err
	})
	return result, err
}
