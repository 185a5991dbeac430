package storagetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/student-records/internal/storage"
	"github.com/aanand-mishra/student-records/internal/types"
)

var errAbort = errors.New("abort transaction")

// FakeStudent returns an unsaved student with random field values.
func FakeStudent() types.Student {
	return types.Student{
		Name:   gofakeit.Name(),
		Email:  gofakeit.Email(),
		Gender: gofakeit.RandomString([]string{"Masculino", "Femenino"}),
		Age:    gofakeit.Number(18, 65),
	}
}

// TestSuite runs the storage contract against fresh, fixture-seeded
// databases returned by newStorage.
func TestSuite(t *testing.T, newStorage func(t *testing.T) storage.Storage) {
	t.Helper()

	if newStorage == nil {
		t.Fatal("storage constructor is nil")
	}

	ctx := context.Background()

	read := func(t *testing.T, s storage.Storage, fn func(q storage.Queries) error) {
		t.Helper()
		require.NoError(t, s.ReadOnly(ctx, fn))
	}

	write := func(t *testing.T, s storage.Storage, fn func(q storage.Queries) error) {
		t.Helper()
		require.NoError(t, s.ReadWrite(ctx, fn))
	}

	count := func(t *testing.T, s storage.Storage) int {
		t.Helper()

		var n int
		read(t, s, func(q storage.Queries) error {
			all, err := q.ListAll(ctx)
			n = len(all)
			return err
		})

		return n
	}

	t.Run("ListAll", func(t *testing.T) {
		t.Parallel()

		s := newStorage(t)

		read(t, s, func(q storage.Queries) error {
			students, err := q.ListAll(ctx)
			assert.Len(t, students, FixtureCount)

			for _, st := range students {
				assert.True(t, st.Persisted())
			}

			return err
		})
	})

	t.Run("FilterByAgeAndGender", func(t *testing.T) {
		t.Parallel()

		s := newStorage(t)

		t.Run("exact set", func(t *testing.T) {
			read(t, s, func(q storage.Queries) error {
				students, err := q.FilterByAgeAndGender(ctx, 32, "Masculino")
				assert.ElementsMatch(t, []int64{3, 5, 9}, IDs(students))

				for _, st := range students {
					if *st.ID == 3 {
						assert.Equal(t, "Carlos López", st.Name)
						assert.Equal(t, "carlos@gmail.com", st.Email)
						assert.Equal(t, "Masculino", st.Gender)
						assert.Equal(t, 32, st.Age)
					}
				}

				return err
			})
		})

		t.Run("gender must match", func(t *testing.T) {
			read(t, s, func(q storage.Queries) error {
				students, err := q.FilterByAgeAndGender(ctx, 32, "Femenino")
				assert.Equal(t, []int64{11}, IDs(students))

				return err
			})
		})

		t.Run("no match is empty, not an error", func(t *testing.T) {
			read(t, s, func(q storage.Queries) error {
				students, err := q.FilterByAgeAndGender(ctx, 99, "Masculino")
				assert.Empty(t, students)

				return err
			})
		})
	})

	t.Run("FilterByGenderAndAgeGreaterThan", func(t *testing.T) {
		t.Parallel()

		s := newStorage(t)

		t.Run("strictly greater", func(t *testing.T) {
			read(t, s, func(q storage.Queries) error {
				students, err := q.FilterByGenderAndAgeGreaterThan(ctx, 30, "Femenino")
				assert.ElementsMatch(t, []int64{11, 14}, IDs(students), "age 30 itself is excluded")

				for _, st := range students {
					assert.Equal(t, "Femenino", st.Gender)
					assert.Greater(t, st.Age, 30)
				}

				return err
			})
		})

		t.Run("gender is exact", func(t *testing.T) {
			read(t, s, func(q storage.Queries) error {
				students, err := q.FilterByGenderAndAgeGreaterThan(ctx, 30, "femenino")
				assert.Empty(t, students)

				return err
			})
		})
	})

	t.Run("FindByID", func(t *testing.T) {
		t.Parallel()

		s := newStorage(t)

		t.Run("found", func(t *testing.T) {
			read(t, s, func(q storage.Queries) error {
				st, ok, err := q.FindByID(ctx, 1)
				assert.True(t, ok)
				assert.Equal(t, types.Student{
					ID:     Ptr(int64(1)),
					Name:   "Juan Pérez",
					Email:  "juan@gmail.com",
					Gender: "Masculino",
					Age:    30,
				}, st)

				return err
			})
		})

		t.Run("absent is not an error", func(t *testing.T) {
			read(t, s, func(q storage.Queries) error {
				st, ok, err := q.FindByID(ctx, 999)
				assert.False(t, ok)
				assert.Equal(t, types.Student{}, st)

				return err
			})
		})
	})

	t.Run("Insert", func(t *testing.T) {
		t.Parallel()

		t.Run("assigns an id", func(t *testing.T) {
			s := newStorage(t)
			ana := types.Student{Name: "Ana", Email: "ana@x.com", Gender: "F", Age: 28}

			write(t, s, func(q storage.Queries) error {
				n, err := q.Insert(ctx, ana)
				assert.Equal(t, int64(1), n)

				return err
			})

			read(t, s, func(q storage.Queries) error {
				all, err := q.ListAll(ctx)
				assert.Len(t, all, FixtureCount+1)

				var matches []types.Student
				for _, st := range all {
					if st.Name == ana.Name && st.Email == ana.Email && st.Gender == ana.Gender && st.Age == ana.Age {
						matches = append(matches, st)
					}
				}

				require.Len(t, matches, 1)
				assert.NotNil(t, matches[0].ID)

				found, ok, findErr := q.FindByID(ctx, *matches[0].ID)
				assert.NoError(t, findErr)
				assert.True(t, ok)
				assert.Equal(t, matches[0], found)

				return err
			})
		})

		t.Run("ignores a given id", func(t *testing.T) {
			s := newStorage(t)
			st := FakeStudent().WithID(1)

			write(t, s, func(q storage.Queries) error {
				n, err := q.Insert(ctx, st)
				assert.Equal(t, int64(1), n)

				return err
			})

			read(t, s, func(q storage.Queries) error {
				first, ok, err := q.FindByID(ctx, 1)
				assert.True(t, ok)
				assert.Equal(t, "Juan Pérez", first.Name, "row 1 must be untouched")

				return err
			})
			assert.Equal(t, FixtureCount+1, count(t, s))
		})
	})

	t.Run("Update", func(t *testing.T) {
		t.Parallel()

		t.Run("full overwrite", func(t *testing.T) {
			s := newStorage(t)
			replacement := types.Student{Name: "Martín", Email: "martin@gmail.com", Gender: "Masculino", Age: 35}.WithID(1)

			write(t, s, func(q storage.Queries) error {
				n, err := q.Update(ctx, replacement)
				assert.Equal(t, int64(1), n)

				return err
			})

			read(t, s, func(q storage.Queries) error {
				st, ok, err := q.FindByID(ctx, 1)
				assert.True(t, ok)
				assert.Equal(t, replacement, st)

				return err
			})
		})

		t.Run("missing row affects nothing", func(t *testing.T) {
			s := newStorage(t)

			write(t, s, func(q storage.Queries) error {
				n, err := q.Update(ctx, FakeStudent().WithID(999))
				assert.Equal(t, int64(0), n)

				return err
			})
		})

		t.Run("nil id affects nothing", func(t *testing.T) {
			s := newStorage(t)

			write(t, s, func(q storage.Queries) error {
				n, err := q.Update(ctx, FakeStudent())
				assert.Equal(t, int64(0), n)

				return err
			})
		})
	})

	t.Run("Delete", func(t *testing.T) {
		t.Parallel()

		s := newStorage(t)

		write(t, s, func(q storage.Queries) error {
			n, err := q.Delete(ctx, 1)
			assert.Equal(t, int64(1), n)

			return err
		})

		read(t, s, func(q storage.Queries) error {
			_, ok, err := q.FindByID(ctx, 1)
			assert.False(t, ok)

			return err
		})

		write(t, s, func(q storage.Queries) error {
			n, err := q.Delete(ctx, 1)
			assert.Equal(t, int64(0), n, "deleting twice removes nothing")

			return err
		})

		assert.Equal(t, FixtureCount-1, count(t, s))
	})

	t.Run("ReadWrite", func(t *testing.T) {
		t.Parallel()

		t.Run("rolls back on error", func(t *testing.T) {
			s := newStorage(t)

			err := s.ReadWrite(ctx, func(q storage.Queries) error {
				if _, err := q.Insert(ctx, FakeStudent()); err != nil {
					return err
				}

				if _, err := q.Delete(ctx, 1); err != nil {
					return err
				}

				return errAbort
			})
			assert.ErrorIs(t, err, errAbort)

			assert.Equal(t, FixtureCount, count(t, s))
			read(t, s, func(q storage.Queries) error {
				_, ok, err := q.FindByID(ctx, 1)
				assert.True(t, ok)

				return err
			})
		})

		t.Run("rolls back on panic", func(t *testing.T) {
			s := newStorage(t)

			assert.Panics(t, func() {
				_ = s.ReadWrite(ctx, func(q storage.Queries) error {
					_, _ = q.Insert(ctx, FakeStudent())
					panic("boom")
				})
			})

			assert.Equal(t, FixtureCount, count(t, s))
		})
	})

	t.Run("concurrent writers", func(t *testing.T) {
		t.Parallel()

		s := newStorage(t)

		const writers = 16

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			deleted int64
			errs    = make([]error, writers)
		)

		for i := range errs {
			wg.Add(1)

			go func() {
				defer wg.Done()

				errs[i] = s.ReadWrite(ctx, func(q storage.Queries) error {
					_, ok, err := q.FindByID(ctx, 1)
					if err != nil || !ok {
						return err
					}

					n, err := q.Delete(ctx, 1)

					mu.Lock()
					deleted += n
					mu.Unlock()

					return err
				})
			}()
		}

		wg.Wait()

		for _, err := range errs {
			assert.NoError(t, err)
		}

		assert.Equal(t, int64(1), deleted, "exactly one writer removes the row")
		assert.Equal(t, FixtureCount-1, count(t, s))
	})

	t.Run("Ping", func(t *testing.T) {
		t.Parallel()

		assert.NoError(t, newStorage(t).Ping(ctx))
	})
}
