package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/models"
)

func newSeededUsuarios() *UsuarioService {
	s := NewUsuarioService(zap.NewNop())
	s.Seed()
	return s
}

func usuarioNames(us []models.Usuario) []string {
	out := make([]string, len(us))
	for i, u := range us {
		out[i] = u.Name
	}
	return out
}

func TestUsuarioService_ListFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	s := newSeededUsuarios()

	assert.Equal(t, []string{"Ana García", "Luis Pérez", "Marta Ruiz"}, usuarioNames(s.List(ctx, UsuarioFilter{Orden: "name"})))
	assert.Equal(t, []string{"Luis Pérez", "Marta Ruiz", "Ana García"}, usuarioNames(s.List(ctx, UsuarioFilter{Orden: "nivel"})))
	assert.Equal(t, []string{"Ana García"}, usuarioNames(s.List(ctx, UsuarioFilter{Nivel: "senior"})))
}

func TestUsuarioService_CreateReplacePatchDelete(t *testing.T) {
	ctx := context.Background()
	s := newSeededUsuarios()

	created, err := s.Create(ctx, UsuarioInput{Name: Some("Pablo Díaz"), Nivel: Some("junior")})
	require.NoError(t, err)
	assert.Equal(t, 4, created.ID)

	replaced, err := s.Replace(ctx, created.ID, UsuarioInput{Nivel: Some("senior")})
	require.NoError(t, err)
	assert.Equal(t, "Pablo Díaz", replaced.Name)
	assert.Equal(t, "senior", replaced.Nivel)

	patched, err := s.Patch(ctx, created.ID, UsuarioInput{Name: Some("Pablo D.")})
	require.NoError(t, err)
	assert.Equal(t, "Pablo D.", patched.Name)
	assert.Equal(t, "senior", patched.Nivel)

	require.NoError(t, s.Delete(ctx, created.ID))
	_, err = s.Get(ctx, created.ID)
	requireAppError(t, err, http.StatusNotFound, "Usuario con ID 4 no encontrado")
}

func TestUsuarioService_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := newSeededUsuarios()

	u, err := s.Get(ctx, 1)
	require.NoError(t, err)
	u.Name = "cambiado"

	again, err := s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Ana García", again.Name)
}
