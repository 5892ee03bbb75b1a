package analizador

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/Nozhtrash/Nozhgess-sub000/pkg/cartola"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/casos"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/mision"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/models"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/normalizador"
)

// Etiquetas de seguimiento. Salen de comparar fechas contra las ventanas de
// vigencia configuradas, nunca de reglas cableadas por enfermedad.
const (
	SeguimientoExcluido    = "Excluyente presente"
	SeguimientoReciente    = "Seguimiento reciente"
	SeguimientoAntiguo     = "Tratamiento antiguo"
	SeguimientoHabilitante = "Habilitante vigente"
	SeguimientoHabAntiguo  = "Habilitante antiguo"
	SeguimientoNinguno     = "Sin seguimiento"
)

// analizarMision resuelve el caso objetivo de la misión dentro de la
// cartola, lo expande, lee el historial y las secciones habilitadas, y arma
// la fila de resultado. El caso se colapsa siempre, incluso tras un error,
// para no arrastrar estado de UI a la misión siguiente.
func (a *Analizador) analizarMision(paciente models.Paciente, m mision.Mision, lista []models.Caso, log zerolog.Logger) models.FilaResultado {
	log = log.With().Str("mision", m.Nombre).Logger()

	fila := models.FilaResultado{
		Rut:             paciente.Rut,
		Nombre:          paciente.Nombre,
		FechaReferencia: paciente.FechaReferencia,
		Mision:          m.Nombre,
		CasoEncontrado:  SinCaso,
		Seguimiento:     "Sin Caso",
		IPD:             "Sin registros",
		OA:              "Sin registros",
		APS:             "Sin registros",
		SIC:             "Sin registros",
	}

	caso := casos.MasReciente(lista, m.Palabras)
	if caso == nil {
		log.Info().Msg("ninguna palabra clave cruzó dentro de la cartola")
		return fila
	}

	fila.CasoEncontrado = normalizador.LimpiarNombreCaso(caso.Problema)
	fila.EstadoCaso = caso.Estado
	fila.FechaCaso = caso.FechaInicio

	if err := cartola.ExpandirCaso(a.ses, caso.Problema, a.techoSpinner); err != nil {
		log.Warn().Err(err).Msg("no se pudo expandir el caso")
		fila.Seguimiento = "Caso sin detalle"
		return fila
	}
	defer cartola.ColapsarCaso(a.ses, log, caso.Problema, a.techoSpinner)

	// El historial va siempre primero: las lecturas de IPD dependen de que
	// la sección no se re-colapse a mitad de pasada.
	historial := cartola.LeerHistorial(a.ses, log, 0)

	fila.Objetivo = buscarCodigo(historial, []string{m.CodigoObjetivo}, paciente.FechaReferencia, m.VentanaDias)
	fila.Habilitante = buscarCodigo(historial, m.Habilitantes, paciente.FechaReferencia, m.VentanaDias)
	fila.Excluyente = buscarCodigo(historial, m.Excluyentes, paciente.FechaReferencia, m.VentanaDias)
	fila.Seguimiento = clasificar(fila, paciente.FechaReferencia, m.VigenciaDias)

	// Secciones en orden fijo y determinista.
	if m.MaxFilas.IPD > 0 {
		fila.IPD = cartola.Resumir(cartola.LeerSeccion(a.ses, log, cartola.IPD, m.MaxFilas.IPD))
	}
	if m.MaxFilas.OA > 0 {
		fila.OA = cartola.Resumir(cartola.LeerSeccion(a.ses, log, cartola.OA, m.MaxFilas.OA))
	}
	if m.MaxFilas.APS > 0 {
		fila.APS = cartola.Resumir(cartola.LeerSeccion(a.ses, log, cartola.APS, m.MaxFilas.APS))
	}
	if m.MaxFilas.SIC > 0 {
		fila.SIC = cartola.Resumir(cartola.LeerSeccion(a.ses, log, cartola.SIC, m.MaxFilas.SIC))
	}

	log.Info().Str("caso", fila.CasoEncontrado).Str("seguimiento", fila.Seguimiento).Msg("misión analizada")
	return fila
}

// buscarCodigo rastrea el historial (que viene de más nuevo a más viejo) y
// devuelve el primer cruce dentro de la ventana de días respecto de la
// fecha de referencia. Sin cruce devuelve el hallazgo vacío.
func buscarCodigo(historial []models.RegistroPrestacion, codigos []string, referencia time.Time, ventanaDias int) models.HallazgoCodigo {
	if len(codigos) == 0 {
		return models.HallazgoCodigo{}
	}

	desde := time.Time{}
	if !referencia.IsZero() && ventanaDias > 0 {
		desde = referencia.AddDate(0, 0, -ventanaDias)
	}

	for _, reg := range historial {
		if reg.Codigo == "" {
			continue
		}
		for _, codigo := range codigos {
			if codigo == "" || reg.Codigo != codigo {
				continue
			}
			if !desde.IsZero() && reg.Fecha.Before(desde) {
				continue
			}
			if !referencia.IsZero() && reg.Fecha.After(referencia) {
				continue
			}
			return models.HallazgoCodigo{Codigo: reg.Codigo, Fecha: reg.Fecha}
		}
	}
	return models.HallazgoCodigo{}
}

// clasificar produce la etiqueta de seguimiento por prioridad estricta:
// excluyente presente manda, después el código objetivo según vigencia,
// después el habilitante según vigencia.
func clasificar(fila models.FilaResultado, referencia time.Time, vigenciaDias int) string {
	if fila.Excluyente.Encontrado() {
		return SeguimientoExcluido
	}

	if fila.Objetivo.Encontrado() {
		if vigente(fila.Objetivo.Fecha, referencia, vigenciaDias) {
			return SeguimientoReciente
		}
		return SeguimientoAntiguo
	}

	if fila.Habilitante.Encontrado() {
		if vigente(fila.Habilitante.Fecha, referencia, vigenciaDias) {
			return SeguimientoHabilitante
		}
		return SeguimientoHabAntiguo
	}

	return SeguimientoNinguno
}

func vigente(fecha, referencia time.Time, vigenciaDias int) bool {
	if fecha.IsZero() || referencia.IsZero() || vigenciaDias <= 0 {
		return false
	}
	return !fecha.Before(referencia.AddDate(0, 0, -vigenciaDias))
}
