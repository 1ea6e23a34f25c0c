package schemas

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v "github.com/web-portfolio-personal/JAML-Ejercicios/internal/validation"
)

var refTime = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func TestBuild_RegistersEveryRoute(t *testing.T) {
	r := Build(refTime)
	for _, name := range []string{
		TodosList, TodosGet, TodosCreate, TodosUpdate, TodosPatch,
		MoviesList, MoviesGet, MoviesCreate, MoviesUpdate, MoviesRate,
		UsersList, UsersGet, UsersCreate, UsersUpdate,
		TracksList, TracksGet, TracksCreate, TracksUpdate,
		StorageGet,
		CursosList, CursosGet, CursosCreate, CursosUpdate, CursosCreateProgramacion,
		UsuariosList, UsuariosGet, UsuariosCreate, UsuariosUpdate,
	} {
		_, ok := r.Lookup(name)
		assert.True(t, ok, name)
	}
}

func TestMovieCreate(t *testing.T) {
	schema := Build(refTime).MustLookup(MoviesCreate)

	n, failures := v.Validate(schema, v.Raw{Body: map[string]any{
		"title": "Alien", "director": "Ridley Scott", "year": float64(1979), "genre": "scifi",
	}})
	require.Nil(t, failures)
	assert.Equal(t, float64(5), n.Body["copies"])

	_, failures = v.Validate(schema, v.Raw{Body: map[string]any{
		"title": "Alien", "director": "Ridley Scott", "year": float64(2030), "genre": "scifi",
	}})
	require.Len(t, failures, 1)
	assert.Equal(t, "El año máximo es 2025", failures[0].Message)
	assert.Equal(t, http.StatusUnprocessableEntity, v.StatusFor(failures))

	_, failures = v.Validate(schema, v.Raw{Body: map[string]any{
		"title": "Alien", "director": "Ridley Scott", "year": 1979.5, "genre": "western", "rating": 3,
	}})
	require.Len(t, failures, 3)
	assert.Equal(t, []string{"rating", "year", "genre"}, failures.Paths())
	assert.Equal(t, http.StatusBadRequest, v.StatusFor(failures))
}

func TestMovieList_QueryDefaultsAndCoercion(t *testing.T) {
	schema := Build(refTime).MustLookup(MoviesList)

	n, failures := v.Validate(schema, v.Raw{Query: map[string]any{"page": "2", "available": "true"}})
	require.Nil(t, failures)
	assert.Equal(t, 2, n.Query.IntOr("page", 0))
	assert.Equal(t, 10, n.Query.IntOr("limit", 0))
	assert.Equal(t, "createdAt", n.Query["sortBy"])
	assert.Equal(t, "desc", n.Query["order"])
	assert.Equal(t, true, n.Query["available"])

	_, failures = v.Validate(schema, v.Raw{Query: map[string]any{"page": "uno", "limit": "500"}})
	require.Len(t, failures, 2)
	assert.Equal(t, "La página debe ser un número positivo", failures[0].Message)
	assert.Equal(t, "El límite máximo es 100", failures[1].Message)
	assert.Equal(t, http.StatusBadRequest, v.StatusFor(failures))
}

func TestMovieUpdate_RequiresAField(t *testing.T) {
	schema := Build(refTime).MustLookup(MoviesUpdate)

	_, failures := v.Validate(schema, v.Raw{
		Body:   map[string]any{},
		Params: map[string]any{"id": "65f1c2a9b3e4d5f6a7b8c9d0"},
	})
	require.Len(t, failures, 1)
	assert.Equal(t, v.CodeCrossField, failures[0].Code)
	assert.Equal(t, http.StatusUnprocessableEntity, v.StatusFor(failures))

	_, failures = v.Validate(schema, v.Raw{
		Body:   map[string]any{"copies": float64(3)},
		Params: map[string]any{"id": "not-an-id"},
	})
	require.Len(t, failures, 1)
	assert.Equal(t, v.SectionParams, failures[0].Section)
	assert.Equal(t, http.StatusBadRequest, v.StatusFor(failures))
}

func TestUserCreate_NormalizesEmail(t *testing.T) {
	schema := Build(refTime).MustLookup(UsersCreate)

	n, failures := v.Validate(schema, v.Raw{Body: map[string]any{
		"name": "Ana", "email": "  Ana@Example.COM ", "password": "supersecreto",
	}})
	require.Nil(t, failures)
	assert.Equal(t, "ana@example.com", n.Body["email"])
	assert.Equal(t, "user", n.Body["role"])
	assert.Equal(t, true, n.Body["isActive"])

	_, failures = v.Validate(schema, v.Raw{Body: map[string]any{
		"name": "Ana", "email": "no-es-email", "password": "corta", "avatar": "ftp",
	}})
	assert.Equal(t, []string{"email", "password", "avatar"}, failures.Paths())
}

func TestTrackCreate_GenresRules(t *testing.T) {
	schema := Build(refTime).MustLookup(TracksCreate)
	body := func(genres []any) map[string]any {
		return map[string]any{
			"title": "Song", "duration": float64(200), "artist": "65f1c2a9b3e4d5f6a7b8c9d0", "genres": genres,
		}
	}

	n, failures := v.Validate(schema, v.Raw{Body: body([]any{"rock"})})
	require.Nil(t, failures)
	assert.Equal(t, []any{}, n.Body["collaborators"])

	_, failures = v.Validate(schema, v.Raw{Body: body([]any{})})
	require.Len(t, failures, 1)
	assert.Equal(t, v.CodeOutOfRange, failures[0].Code)

	_, failures = v.Validate(schema, v.Raw{Body: body([]any{"rock", "rock"})})
	require.Len(t, failures, 1)
	assert.Equal(t, v.CodeDuplicateValue, failures[0].Code)
	assert.Equal(t, http.StatusUnprocessableEntity, v.StatusFor(failures))
}

func TestCursos_CategoryParam(t *testing.T) {
	schema := Build(refTime).MustLookup(CursosGet)

	_, failures := v.Validate(schema, v.Raw{Params: map[string]any{"categoria": "historia", "id": "1"}})
	require.Len(t, failures, 1)
	assert.Equal(t, "categoria", failures[0].Path)
	assert.Equal(t, v.CodeInvalidEnum, failures[0].Code)

	_, failures = v.Validate(schema, v.Raw{Params: map[string]any{"categoria": "matematicas", "id": "1a"}})
	require.Len(t, failures, 1)
	assert.Equal(t, "ID debe ser numérico", failures[0].Message)
}

func TestCursoCreate_LanguageRequiredForProgramacion(t *testing.T) {
	r := Build(refTime)
	body := map[string]any{"titulo": "Curso sin lenguaje", "nivel": "basico"}

	_, failures := v.Validate(r.MustLookup(CursoCreateRoute("programacion")), v.Raw{
		Body:   body,
		Params: map[string]any{"categoria": "programacion"},
	})
	require.Len(t, failures, 1)
	assert.Equal(t, "lenguaje", failures[0].Path)
	assert.Equal(t, v.CodeMissingRequired, failures[0].Code)
	assert.Equal(t, http.StatusBadRequest, v.StatusFor(failures))

	_, failures = v.Validate(r.MustLookup(CursoCreateRoute("matematicas")), v.Raw{
		Body:   body,
		Params: map[string]any{"categoria": "matematicas"},
	})
	assert.Nil(t, failures)
}

func TestPageQuery_UpperBound(t *testing.T) {
	schema := Build(refTime).MustLookup(MoviesList)

	n, failures := v.Validate(schema, v.Raw{Query: map[string]any{"page": "1000000"}})
	require.Nil(t, failures)
	assert.Equal(t, MaxPage, n.Query.IntOr("page", 0))

	_, failures = v.Validate(schema, v.Raw{Query: map[string]any{"page": "100000000000000000000"}})
	require.Len(t, failures, 1)
	assert.Equal(t, "page", failures[0].Path)
	assert.Equal(t, v.CodeOutOfRange, failures[0].Code)
	assert.Equal(t, http.StatusBadRequest, v.StatusFor(failures))
}

func TestTodoUpdate_RequiresCompletedAndTags(t *testing.T) {
	schema := Build(refTime).MustLookup(TodosUpdate)

	_, failures := v.Validate(schema, v.Raw{
		Body:   map[string]any{"title": "Estudiar", "priority": "low"},
		Params: map[string]any{"id": "2f1d4b1e-8c7a-4d59-9a0e-3c2b1a0f9e8d"},
	})
	assert.Equal(t, []string{"completed", "tags"}, failures.Paths())
	assert.Equal(t, "El campo completed es requerido en PUT", failures[0].Message)
}
