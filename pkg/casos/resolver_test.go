package casos

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nozhtrash/Nozhgess-sub000/pkg/models"
)

func fecha(d, m, a int) time.Time {
	return time.Date(a, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestCoincide(t *testing.T) {
	caso := models.Caso{Problema: "Diabetes Mellitus Tipo 2 Decreto 140"}
	assert.True(t, Coincide(caso, "diabetes"))
	assert.True(t, Coincide(caso, "DIABETES MELLITUS"))
	// También al revés: el operador escribió de más.
	assert.True(t, Coincide(models.Caso{Problema: "Diabetes"}, "diabetes mellitus tipo 2"))
	assert.False(t, Coincide(caso, "artrosis"))
	assert.False(t, Coincide(models.Caso{}, "diabetes"))
}

func TestResolverSinCoincidencias(t *testing.T) {
	elegido, razon := Resolver([]models.Caso{{Problema: "Artrosis de Cadera"}}, "diabetes")
	assert.Nil(t, elegido)
	assert.Equal(t, "ningún caso coincidió", razon)
}

func TestResolverCoincidenciaUnica(t *testing.T) {
	lista := []models.Caso{
		{Problema: "Artrosis de Cadera", Estado: "Caso Cerrado"},
		{Problema: "Diabetes Mellitus Tipo 2", Estado: "Caso Activo"},
	}
	elegido, razon := Resolver(lista, "diabetes")
	require.NotNil(t, elegido)
	assert.Equal(t, "Diabetes Mellitus Tipo 2", elegido.Problema)
	assert.Equal(t, "coincidencia única", razon)
}

func TestResolverNoCerradoLeGanaACerrado(t *testing.T) {
	abierto := models.Caso{Problema: "Diabetes Mellitus", Estado: "Caso Activo", FechaInicio: fecha(1, 1, 2020)}
	cerrado := models.Caso{Problema: "Diabetes Mellitus", Estado: "Caso Cerrado", FechaInicio: fecha(1, 1, 2024)}

	// El orden de llegada no importa: siempre gana el no cerrado, aunque el
	// cerrado sea más nuevo.
	for _, lista := range [][]models.Caso{{abierto, cerrado}, {cerrado, abierto}} {
		elegido, _ := Resolver(lista, "diabetes")
		require.NotNil(t, elegido)
		assert.Equal(t, "Caso Activo", elegido.Estado)
	}
}

func TestResolverVariosAbiertosGanaElMasReciente(t *testing.T) {
	lista := []models.Caso{
		{Problema: "Diabetes Mellitus", Estado: "Caso Activo", FechaInicio: fecha(10, 1, 2023)},
		{Problema: "Diabetes Mellitus", Estado: "Caso Activo", FechaInicio: fecha(15, 2, 2024)},
	}
	elegido, razon := Resolver(lista, "diabetes")
	require.NotNil(t, elegido)
	assert.Equal(t, fecha(15, 2, 2024), elegido.FechaInicio)
	assert.Equal(t, "no cerrado con inicio más reciente", razon)
}

func TestResolverTodosCerradosGanaElCierreMasReciente(t *testing.T) {
	lista := []models.Caso{
		{Problema: "Diabetes Mellitus", Estado: "Caso Cerrado", FechaCierre: fecha(10, 1, 2024)},
		{Problema: "Diabetes Mellitus", Estado: "Caso Cerrado", FechaCierre: fecha(15, 2, 2024)},
	}
	elegido, razon := Resolver(lista, "diabetes")
	require.NotNil(t, elegido)
	assert.Equal(t, fecha(15, 2, 2024), elegido.FechaCierre)
	assert.Equal(t, "cerrado con cierre más reciente", razon)
}

func TestResolverSinFechasQuedaElPrimero(t *testing.T) {
	lista := []models.Caso{
		{Problema: "Diabetes A", Estado: "Caso Activo"},
		{Problema: "Diabetes B", Estado: "Caso Activo"},
	}
	elegido, razon := Resolver(lista, "diabetes")
	require.NotNil(t, elegido)
	assert.Equal(t, "Diabetes A", elegido.Problema)
	assert.Equal(t, "varios no cerrados sin fecha, primero en orden", razon)
}

func TestMasRecienteIgnoraAbiertoCerrado(t *testing.T) {
	lista := []models.Caso{
		{Problema: "Diabetes Mellitus", Estado: "Caso Activo", FechaInicio: fecha(10, 1, 2023)},
		{Problema: "Diabetes Mellitus Tipo 2", Estado: "Caso Cerrado", FechaInicio: fecha(15, 2, 2024)},
		{Problema: "Artrosis de Cadera", Estado: "Caso Activo", FechaInicio: fecha(1, 1, 2025)},
	}
	elegido := MasReciente(lista, []string{"diabetes"})
	require.NotNil(t, elegido)
	assert.Equal(t, "Diabetes Mellitus Tipo 2", elegido.Problema)

	assert.Nil(t, MasReciente(lista, []string{"epilepsia"}))
}
