package main

import (
	"bufio"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nozhtrash/Nozhgess-sub000/pkg/analizador"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/browser"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/database"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/estado"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/mision"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/models"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/navegacion"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/normalizador"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/reintento"
)

func main() {
	rutaConfig := flag.String("config", "config.yaml", "archivo de configuración de la corrida")
	rutaNomina := flag.String("nomina", "nomina.txt", "nómina de pacientes: fecha;rut;nombre por línea")
	rutaSalida := flag.String("salida", "resultados.csv", "archivo CSV de resultados")
	modoLote := flag.Bool("lote", false, "sin preguntas: los pacientes agotados se marcan y se sigue")
	verboso := flag.Bool("v", false, "log de depuración")
	flag.Parse()

	nivel := zerolog.InfoLevel
	if *verboso {
		nivel = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		Level(nivel).With().Timestamp().Logger()

	cfg, err := mision.Cargar(*rutaConfig)
	if err != nil {
		log.Fatal("Error cargando la configuración:", err)
	}

	pacientes, err := cargarNomina(*rutaNomina)
	if err != nil {
		log.Fatal("Error cargando la nómina:", err)
	}

	fmt.Println("🏥 Analizador de cartolas GES")
	fmt.Println("=============================")
	fmt.Printf("Pacientes: %d | Misiones: %d\n", len(pacientes), len(cfg.Misiones))
	fmt.Printf("Conectando al navegador en el puerto %d...\n", cfg.Portal.PuertoDebug)

	navegador, pagina, err := browser.Conectar(cfg.Portal.PuertoDebug)
	if err != nil {
		log.Fatal("Error conectando al navegador (¿Chrome con --remote-debugging-port?):", err)
	}
	defer navegador.Close()

	ses := browser.NuevaSesion(pagina, logger)
	clas := estado.NuevoClasificador(pagina, logger)
	dis := reintento.NuevoDisyuntor(5)
	techo := time.Duration(cfg.Portal.TechoSpinnerS) * time.Second

	maq := navegacion.Nueva(ses, clas,
		navegacion.Credenciales{Rut: cfg.Portal.Rut, Clave: cfg.Portal.Clave, Unidad: cfg.Portal.Unidad},
		navegacion.Opciones{URLPortal: cfg.Portal.URL, TechoSpinner: techo},
		dis, logger)

	var decidir analizador.Decididor
	if !*modoLote {
		decidir = decididorDeConsola(ses)
	}

	anl := analizador.Nuevo(analizador.Opciones{
		Sesion:       ses,
		Maquina:      maq,
		Misiones:     cfg.Misiones,
		Decidir:      decidir,
		Disyuntor:    dis,
		TechoSpinner: techo,
	}, logger)

	inicio := time.Now()
	resultado, errCorrida := anl.Procesar(pacientes)
	if errCorrida != nil {
		logger.Error().Err(errCorrida).Msg("la corrida terminó con error, resultados parciales")
	}

	fmt.Printf("\n✅ Corrida terminada en %.1f minutos\n", time.Since(inicio).Minutes())
	fmt.Printf("Filas: %d | Problemas: %d\n", len(resultado.Filas), len(resultado.Problemas))

	if err := guardarCSV(*rutaSalida, resultado.Filas); err != nil {
		log.Fatal("Error guardando resultados:", err)
	}
	fmt.Printf("Resultados guardados en %s\n", *rutaSalida)

	for _, p := range resultado.Problemas {
		fmt.Printf("⚠️  %s (%s): %s\n", p.Rut, p.Nombre, p.Motivo)
	}

	if cfg.Postgres != "" {
		if err := persistir(cfg.Postgres, resultado, len(pacientes), len(cfg.Misiones)); err != nil {
			logger.Error().Err(err).Msg("no se pudo persistir en PostgreSQL")
		} else {
			fmt.Println("Corrida persistida en PostgreSQL")
		}
	}
}

// decididorDeConsola pregunta por el destino de un paciente agotado.
// Enter reintenta; si la página venía colgada activa además el modo lento.
func decididorDeConsola(ses *browser.Sesion) analizador.Decididor {
	lector := bufio.NewReader(os.Stdin)
	return func(paciente models.Paciente, err error) analizador.Decision {
		fmt.Printf("\n⚠️  Paciente %s agotó los reintentos: %v\n", paciente.Rut, err)
		fmt.Print("[Enter] reintentar | [s] saltar | [a] abortar | [l] reintentar en modo lento: ")
		linea, _ := lector.ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(linea)) {
		case "s":
			return analizador.Saltar
		case "a":
			return analizador.Abortar
		case "l":
			ses.ActivarModoLento()
			return analizador.Reintentar
		default:
			return analizador.Reintentar
		}
	}
}

// cargarNomina lee "fecha;rut;nombre" por línea. Acepta líneas sin fecha
// ("rut;nombre") y saltea comentarios y vacías.
func cargarNomina(ruta string) ([]models.Paciente, error) {
	archivo, err := os.Open(ruta)
	if err != nil {
		return nil, err
	}
	defer archivo.Close()

	var pacientes []models.Paciente
	escaner := bufio.NewScanner(archivo)
	for escaner.Scan() {
		linea := strings.TrimSpace(escaner.Text())
		if linea == "" || strings.HasPrefix(linea, "#") {
			continue
		}
		partes := strings.Split(linea, ";")
		var p models.Paciente
		switch len(partes) {
		case 2:
			p.Rut = strings.TrimSpace(partes[0])
			p.Nombre = strings.TrimSpace(partes[1])
		case 3:
			p.FechaReferencia = normalizador.ExtraerFecha(partes[0])
			p.Rut = strings.TrimSpace(partes[1])
			p.Nombre = strings.TrimSpace(partes[2])
		default:
			return nil, fmt.Errorf("línea de nómina inválida: %q", linea)
		}
		p.Rut = normalizador.LimpiarRut(p.Rut)
		if !normalizador.ValidarRut(p.Rut) {
			return nil, fmt.Errorf("RUT inválido en la nómina: %q", p.Rut)
		}
		pacientes = append(pacientes, p)
	}
	if err := escaner.Err(); err != nil {
		return nil, err
	}
	if len(pacientes) == 0 {
		return nil, fmt.Errorf("la nómina %s está vacía", ruta)
	}
	return pacientes, nil
}

func guardarCSV(ruta string, filas []models.FilaResultado) error {
	archivo, err := os.Create(ruta)
	if err != nil {
		return err
	}
	defer archivo.Close()

	w := csv.NewWriter(archivo)
	w.Comma = ';'
	defer w.Flush()

	encabezado := []string{
		"rut", "nombre", "fecha_referencia", "mision",
		"caso_encontrado", "estado_caso", "fecha_caso",
		"codigo_objetivo", "fecha_objetivo",
		"habilitante", "fecha_habilitante",
		"excluyente", "fecha_excluyente",
		"seguimiento", "ipd", "oa", "aps", "sic",
	}
	if err := w.Write(encabezado); err != nil {
		return err
	}

	for _, fila := range filas {
		registro := []string{
			fila.Rut, fila.Nombre, formatearFecha(fila.FechaReferencia), fila.Mision,
			fila.CasoEncontrado, fila.EstadoCaso, formatearFecha(fila.FechaCaso),
			fila.Objetivo.Codigo, formatearFecha(fila.Objetivo.Fecha),
			fila.Habilitante.Codigo, formatearFecha(fila.Habilitante.Fecha),
			fila.Excluyente.Codigo, formatearFecha(fila.Excluyente.Fecha),
			fila.Seguimiento, fila.IPD, fila.OA, fila.APS, fila.SIC,
		}
		if err := w.Write(registro); err != nil {
			return err
		}
	}
	return nil
}

func formatearFecha(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}

func persistir(cadena string, res *analizador.Resultado, pacientes, misiones int) error {
	servicio, err := database.NuevoServicio(cadena)
	if err != nil {
		return err
	}
	defer servicio.Close()

	if err := servicio.CrearEsquema(); err != nil {
		return err
	}
	return servicio.GuardarCorrida(res.Filas, res.Problemas, pacientes, misiones)
}
