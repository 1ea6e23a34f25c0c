// Package schemas declares the request schemas of every route and registers
// them by name.
package schemas

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	v "github.com/web-portfolio-personal/JAML-Ejercicios/internal/validation"
)

const (
	TodosList   = "todos.list"
	TodosGet    = "todos.get"
	TodosCreate = "todos.create"
	TodosUpdate = "todos.update"
	TodosPatch  = "todos.patch"

	MoviesList   = "movies.list"
	MoviesGet    = "movies.get"
	MoviesCreate = "movies.create"
	MoviesUpdate = "movies.update"
	MoviesRate   = "movies.rate"

	UsersList   = "users.list"
	UsersGet    = "users.get"
	UsersCreate = "users.create"
	UsersUpdate = "users.update"

	TracksList   = "tracks.list"
	TracksGet    = "tracks.get"
	TracksCreate = "tracks.create"
	TracksUpdate = "tracks.update"

	StorageGet = "storage.get"

	CursosList   = "cursos.list"
	CursosGet    = "cursos.get"
	CursosCreate = "cursos.create"
	CursosUpdate = "cursos.update"

	CursosCreateProgramacion = "cursos.create.programacion"

	UsuariosList   = "usuarios.list"
	UsuariosGet    = "usuarios.get"
	UsuariosCreate = "usuarios.create"
	UsuariosUpdate = "usuarios.update"
)

// MaxPage bounds the page query parameter of paginated lists.
const MaxPage = 1_000_000

var (
	Priorities    = []string{"low", "medium", "high"}
	MovieGenres   = []string{"action", "comedy", "drama", "horror", "scifi"}
	UserRoles     = []string{"user", "admin"}
	CursoCats     = []string{"programacion", "matematicas"}
	CursoLevels   = []string{"basico", "intermedio", "avanzado"}
	CursoLangs    = []string{"javascript", "python", "java", "csharp"}
	UsuarioLevels = []string{"junior", "mid-senior", "senior"}
)

var (
	ObjectIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)
	DigitsPattern   = regexp.MustCompile(`^\d+$`)
	uuidPattern     = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
)

const atLeastOneField = "Debe proporcionar al menos un campo para actualizar"

// NewRegistry builds the registry with every route schema. The movie year
// ceiling is the current year at build time.
func NewRegistry() *v.Registry {
	return Build(time.Now())
}

// Build is NewRegistry with an explicit reference time.
func Build(now time.Time) *v.Registry {
	r := v.NewRegistry()
	registerTodos(r)
	registerMovies(r, now.Year())
	registerUsers(r)
	registerTracks(r)
	registerStorage(r)
	registerCursos(r)
	registerUsuarios(r)
	return r
}

func objectIDParams() *v.FieldSet {
	return v.Open(v.String("id").Require().Check(v.Pattern(ObjectIDPattern, "ID debe ser un ObjectId válido")))
}

// CursoCreateRoute picks the create schema of a category. Programming
// courses must name their language.
func CursoCreateRoute(categoria string) string {
	if categoria == "programacion" {
		return CursosCreateProgramacion
	}
	return CursosCreate
}

func digitIDParams(extra ...v.FieldSpec) *v.FieldSet {
	specs := append([]v.FieldSpec{
		v.String("id").Require().Check(v.Pattern(DigitsPattern, "ID debe ser numérico")),
	}, extra...)
	return v.Open(specs...)
}

func pageQuery() []v.FieldSpec {
	return []v.FieldSpec{
		v.Integer("page").Coerce(v.ParseInt()).
			Describe("La página debe ser un número positivo").
			Check(v.Min(1, "La página mínima es 1"), v.Max(MaxPage, "La página máxima es 1000000")).
			WithDefault(float64(1)),
		v.Integer("limit").Coerce(v.ParseInt()).
			Describe("El límite debe ser un número positivo").
			Check(v.Min(1, "El límite mínimo es 1"), v.Max(100, "El límite máximo es 100")).
			WithDefault(float64(10)),
	}
}

func order() v.FieldSpec {
	return v.Enum("order", "asc", "desc").Describe("order debe ser: asc o desc")
}

// Todos

func registerTodos(r *v.Registry) {
	idParams := v.Open(v.String("id").Require().Check(v.Pattern(uuidPattern, "ID debe ser un UUID válido")))

	title := v.String("title").Check(
		v.MinLen(3, "El título debe tener al menos 3 caracteres"),
		v.MaxLen(100, "El título no puede exceder 100 caracteres"),
	)
	description := v.String("description").AllowNull().
		Check(v.MaxLen(500, "La descripción no puede exceder 500 caracteres"))
	priority := v.Enum("priority", Priorities...).Describe("La prioridad debe ser: low, medium o high")
	dueDate := v.DateTime("dueDate").AllowNull().
		Describe("Fecha inválida. Usa formato ISO 8601").
		Check(v.Future("La fecha de vencimiento debe ser una fecha válida y futura"))
	tags := v.Array("tags", v.String("tag").Check(
		v.MinLen(1, "Cada tag debe tener al menos 1 carácter"),
		v.MaxLen(30, "Cada tag no puede exceder 30 caracteres"),
	)).Check(
		v.MaxItems(5, "Máximo 5 tags permitidos"),
		v.Unique("Los tags no pueden estar duplicados"),
	)

	r.MustRegister(TodosList, &v.Schema{Query: v.Open(
		v.Boolean("completed").Coerce(v.ParseBool()).Describe("completed debe ser true o false"),
		priority,
		v.String("tag").Check(v.MaxLen(50, "El tag no puede exceder 50 caracteres")),
		v.Enum("sortBy", "dueDate", "createdAt", "priority", "title"),
		order(),
		v.String("search").Check(v.MaxLen(100, "La búsqueda no puede exceder 100 caracteres")),
	)})

	r.MustRegister(TodosGet, &v.Schema{Params: idParams})

	r.MustRegister(TodosCreate, &v.Schema{Body: v.Open(
		title.Require(),
		description,
		priority.Require(),
		v.Boolean("completed").WithDefault(false),
		dueDate,
		tags.WithDefault([]any{}),
	)})

	r.MustRegister(TodosUpdate, &v.Schema{
		Body: v.Open(
			title.Require(),
			description,
			priority.Require(),
			v.Boolean("completed").Require().Describe("El campo completed es requerido en PUT"),
			dueDate,
			tags.Require(),
		),
		Params: idParams,
	})

	r.MustRegister(TodosPatch, &v.Schema{
		Body: v.Open(
			title,
			description,
			priority,
			v.Boolean("completed"),
			dueDate,
			tags,
		),
		Params: idParams,
	})
}

// Movies

func registerMovies(r *v.Registry, currentYear int) {
	genreMsg := "El género debe ser uno de: " + strings.Join(MovieGenres, ", ")
	yearMax := fmt.Sprintf("El año máximo es %d", currentYear)

	title := v.String("title").Describe("El título debe ser un texto").Check(
		v.MinLen(2, "El título debe tener al menos 2 caracteres"),
		v.MaxLen(200, "El título no puede exceder 200 caracteres"),
	)
	director := v.String("director").Describe("El director debe ser un texto").Check(
		v.MinLen(2, "El director debe tener al menos 2 caracteres"),
		v.MaxLen(100, "El director no puede exceder 100 caracteres"),
	)
	year := v.Number("year").Describe("El año debe ser un número").Check(
		v.Int("El año debe ser un número entero"),
		v.Min(1888, "El año mínimo es 1888"),
		v.Max(float64(currentYear), yearMax),
	)
	genre := v.Enum("genre", MovieGenres...).Describe(genreMsg)
	copies := v.Number("copies").Describe("Las copias deben ser un número").Check(
		v.Int("Las copias deben ser un número entero"),
		v.Min(0, "Las copias no pueden ser negativas"),
	)

	r.MustRegister(MoviesList, &v.Schema{Query: v.Open(append([]v.FieldSpec{
		genre,
		v.String("search").Check(
			v.MinLen(1, "El término de búsqueda no puede estar vacío"),
			v.MaxLen(100, "El término de búsqueda es demasiado largo"),
		),
		v.Enum("sortBy", "title", "year", "genre", "timesRented", "createdAt").
			Describe("sortBy debe ser: title, year, genre, timesRented o createdAt").
			WithDefault("createdAt"),
		order().WithDefault("desc"),
		v.Boolean("available").Coerce(v.ParseBool()).Describe("El filtro available debe ser true o false"),
	}, pageQuery()...)...)})

	r.MustRegister(MoviesGet, &v.Schema{Params: objectIDParams()})

	r.MustRegister(MoviesCreate, &v.Schema{Body: v.Strict(
		title.Require(),
		director.Require(),
		year.Require(),
		genre.Require(),
		copies.WithDefault(float64(5)),
	)})

	r.MustRegister(MoviesUpdate, &v.Schema{
		Body:   v.Strict(title, director, year, genre, copies).Refine(v.AtLeastOne(atLeastOneField)),
		Params: objectIDParams(),
	})

	r.MustRegister(MoviesRate, &v.Schema{
		Body: v.Strict(
			v.Number("rating").Require().Describe("La valoración debe ser un número").Check(
				v.Min(0, "La valoración mínima es 0"),
				v.Max(10, "La valoración máxima es 10"),
			),
		),
		Params: objectIDParams(),
	})
}

// Users

func registerUsers(r *v.Registry) {
	name := v.String("name").Check(
		v.MinLen(2, "El nombre debe tener al menos 2 caracteres"),
		v.MaxLen(100, "El nombre no puede exceder 100 caracteres"),
	)
	email := v.String("email").Coerce(v.Chain(v.Trim(), v.Lowercase())).Check(v.Email("Email no válido"))
	password := v.String("password").Check(v.MinLen(8, "La contraseña debe tener al menos 8 caracteres"))
	role := v.Enum("role", UserRoles...).Describe("El rol debe ser: user o admin")
	avatar := v.String("avatar").AllowNull().Check(v.URL("URL de avatar no válida"))

	r.MustRegister(UsersList, &v.Schema{Query: v.Open(append(pageQuery(),
		role,
		v.Boolean("isActive").Coerce(v.ParseBool()).Describe("isActive debe ser true o false"),
	)...)})

	r.MustRegister(UsersGet, &v.Schema{Params: objectIDParams()})

	r.MustRegister(UsersCreate, &v.Schema{Body: v.Strict(
		name.Require(),
		email.Require(),
		password.Require(),
		role.WithDefault("user"),
		avatar,
		v.Boolean("isActive").WithDefault(true),
	)})

	r.MustRegister(UsersUpdate, &v.Schema{
		Body: v.Strict(name, email, password, role, avatar, v.Boolean("isActive")).
			Refine(v.AtLeastOne(atLeastOneField)),
		Params: objectIDParams(),
	})
}

// Tracks

func registerTracks(r *v.Registry) {
	title := v.String("title").Check(
		v.MinLen(3, "El título debe tener al menos 3 caracteres"),
		v.MaxLen(200, "El título no puede exceder 200 caracteres"),
	)
	duration := v.Integer("duration").Check(
		v.Min(1, "La duración mínima es 1 segundo"),
		v.Max(36000, "La duración máxima es 36000 segundos (10 horas)"),
	)
	artist := v.String("artist").Check(v.Pattern(ObjectIDPattern, "El artista debe ser un ObjectId válido"))
	collaborators := v.Array("collaborators",
		v.String("collaborator").Check(v.Pattern(ObjectIDPattern, "Cada colaborador debe ser un ObjectId válido")))
	genres := v.Array("genres", v.String("genre").Check(
		v.MinLen(1, "Cada género debe tener al menos 1 carácter"),
		v.MaxLen(50, "Cada género no puede exceder 50 caracteres"),
	)).Check(
		v.MinItems(1, "Debe tener al menos un género"),
		v.Unique("Los géneros no pueden estar duplicados"),
	)
	releaseDate := v.DateTime("releaseDate").Describe("Fecha inválida. Usa formato ISO 8601")

	r.MustRegister(TracksList, &v.Schema{Query: v.Open(append(pageQuery(),
		v.String("genre").Check(v.MaxLen(50, "Cada género no puede exceder 50 caracteres")),
		artist,
		v.Enum("sortBy", "title", "duration", "plays", "releaseDate", "createdAt").WithDefault("createdAt"),
		order().WithDefault("desc"),
	)...)})

	r.MustRegister(TracksGet, &v.Schema{Params: objectIDParams()})

	r.MustRegister(TracksCreate, &v.Schema{Body: v.Strict(
		title.Require(),
		duration.Require(),
		artist.Require(),
		collaborators.WithDefault([]any{}),
		genres.Require(),
		releaseDate,
	)})

	r.MustRegister(TracksUpdate, &v.Schema{
		Body: v.Strict(
			title,
			duration,
			artist,
			collaborators,
			genres,
			v.Integer("plays").Check(v.Min(0, "Las reproducciones no pueden ser negativas")),
			releaseDate,
		).Refine(v.AtLeastOne(atLeastOneField)),
		Params: objectIDParams(),
	})
}

func registerStorage(r *v.Registry) {
	r.MustRegister(StorageGet, &v.Schema{Params: objectIDParams()})
}

// Cursos

func registerCursos(r *v.Registry) {
	categoria := v.Enum("categoria", CursoCats...).Require().
		Describe("La categoría debe ser: programacion o matematicas")
	nivel := v.Enum("nivel", CursoLevels...).Describe("El nivel debe ser: basico, intermedio o avanzado")
	titulo := v.String("titulo").Check(
		v.MinLen(3, "El título debe tener al menos 3 caracteres"),
		v.MaxLen(100, "El título no puede exceder 100 caracteres"),
	)
	lenguaje := v.Enum("lenguaje", CursoLangs...).Describe("El lenguaje debe ser: javascript, python, java o csharp")
	tema := v.String("tema").Check(v.MaxLen(50, "El tema no puede exceder 50 caracteres"))
	descripcion := v.String("descripcion").AllowNull().
		Check(v.MaxLen(500, "La descripción no puede exceder 500 caracteres"))

	r.MustRegister(CursosList, &v.Schema{
		Query: v.Open(
			nivel,
			v.Enum("orden", "vistas", "titulo").Describe("orden debe ser: vistas o titulo"),
			v.Integer("limit").Coerce(v.ParseInt()).Describe("El límite debe ser un número positivo").
				Check(v.Min(1, "El límite mínimo es 1"), v.Max(100, "El límite máximo es 100")),
			v.Integer("offset").Coerce(v.ParseInt()).Describe("El offset debe ser un número positivo"),
		),
		Params: v.Open(categoria),
	})

	r.MustRegister(CursosGet, &v.Schema{Params: digitIDParams(categoria)})

	r.MustRegister(CursosCreate, &v.Schema{
		Body:   v.Open(titulo.Require(), lenguaje, nivel.Require(), tema, descripcion),
		Params: v.Open(categoria),
	})
	r.MustRegister(CursosCreateProgramacion, &v.Schema{
		Body:   v.Open(titulo.Require(), lenguaje.Require(), nivel.Require(), tema, descripcion),
		Params: v.Open(categoria),
	})

	r.MustRegister(CursosUpdate, &v.Schema{
		Body:   v.Open(titulo, lenguaje, nivel, tema, descripcion),
		Params: digitIDParams(categoria),
	})
}

// Usuarios

func registerUsuarios(r *v.Registry) {
	name := v.String("name").Check(
		v.MinLen(2, "El nombre debe tener al menos 2 caracteres"),
		v.MaxLen(100, "El nombre no puede exceder 100 caracteres"),
	)
	nivel := v.Enum("nivel", UsuarioLevels...).Describe("El nivel debe ser junior, mid-senior o senior")

	r.MustRegister(UsuariosList, &v.Schema{Query: v.Open(
		nivel,
		v.Enum("orden", "name", "nivel").Describe("orden debe ser: name o nivel"),
	)})
	r.MustRegister(UsuariosGet, &v.Schema{Params: digitIDParams()})
	r.MustRegister(UsuariosCreate, &v.Schema{Body: v.Open(name.Require(), nivel.Require())})
	r.MustRegister(UsuariosUpdate, &v.Schema{
		Body:   v.Open(name, nivel),
		Params: digitIDParams(),
	})
}
