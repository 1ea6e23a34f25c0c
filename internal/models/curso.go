package models

type Curso struct {
	ID          int     `json:"id"`
	Titulo      string  `json:"titulo"`
	Lenguaje    *string `json:"lenguaje,omitempty"`
	Tema        *string `json:"tema,omitempty"`
	Nivel       string  `json:"nivel"`
	Descripcion *string `json:"descripcion"`
	Vistas      int     `json:"vistas"`
}

type Usuario struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Nivel string `json:"nivel"`
}

// UsuarioLevelRank orders usuario levels junior first.
var UsuarioLevelRank = map[string]int{"junior": 1, "mid-senior": 2, "senior": 3}
