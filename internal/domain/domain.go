package domain

import (
	"github.com/minsocial/celiaquia-backend/internal/domain/citizen"
	"github.com/minsocial/celiaquia-backend/internal/domain/cupo"
	"github.com/minsocial/celiaquia-backend/internal/domain/expediente"
	"github.com/minsocial/celiaquia-backend/internal/domain/reference"
	"github.com/minsocial/celiaquia-backend/internal/domain/user"
)

// Model aliases so callers can import one package as `types`.

type (
	Province     = reference.Province
	Municipality = reference.Municipality
	Locality     = reference.Locality
	Sex          = reference.Sex
	Nationality  = reference.Nationality
	Catalog      = reference.Catalog

	Citizen        = citizen.Citizen
	DocumentKind   = citizen.DocumentKind
	FamilyRelation = citizen.FamilyRelation

	User = user.User
	Role = user.Role

	Expediente        = expediente.Expediente
	ExpedienteState   = expediente.State
	ExpedienteHistory = expediente.ExpedienteHistory
	Legajo            = expediente.Legajo
	LegajoRol         = expediente.Rol
	IntakeState       = expediente.IntakeState
	TechReview        = expediente.TechReview
	SintysResult      = expediente.SintysResult
	RenaperStatus     = expediente.RenaperStatus
	LegajoCupoState   = expediente.CupoState
	ReviewHistory     = expediente.ReviewHistory
	ErrorRow          = expediente.ErrorRow
	InformePago       = expediente.InformePago

	CupoConfig   = cupo.Config
	CupoMovement = cupo.Movement
	CupoMetrics  = cupo.Metrics
	MovementKind = cupo.MovementKind
)

const (
	DocumentDNI       = citizen.DocumentDNI
	DocumentCUIT      = citizen.DocumentCUIT
	DocumentPasaporte = citizen.DocumentPasaporte
	DocumentLE        = citizen.DocumentLE

	RelationChild  = citizen.RelationChild
	RelationParent = citizen.RelationParent

	RoleProvincial  = user.RoleProvincial
	RoleTecnico     = user.RoleTecnico
	RoleCoordinador = user.RoleCoordinador
	RoleAdmin       = user.RoleAdmin

	StateCreado              = expediente.StateCreado
	StateProcesado           = expediente.StateProcesado
	StateEnEspera            = expediente.StateEnEspera
	StateConfirmacionDeEnvio = expediente.StateConfirmacionDeEnvio
	StateRecepcionado        = expediente.StateRecepcionado
	StateAsignado            = expediente.StateAsignado
	StateProcesoDeCruce      = expediente.StateProcesoDeCruce
	StateEnRevision          = expediente.StateEnRevision
	StatePagoPendiente       = expediente.StatePagoPendiente
	StatePagado              = expediente.StatePagado
	StateRechazado           = expediente.StateRechazado

	RolBeneficiario             = expediente.RolBeneficiario
	RolResponsable              = expediente.RolResponsable
	RolBeneficiarioYResponsable = expediente.RolBeneficiarioYResponsable

	IntakeDocumentoPendiente = expediente.IntakeDocumentoPendiente
	IntakeDocumentoCompleto  = expediente.IntakeDocumentoCompleto

	ReviewSinRevisar = expediente.ReviewSinRevisar
	ReviewAprobado   = expediente.ReviewAprobado
	ReviewRechazado  = expediente.ReviewRechazado
	ReviewSubsanar   = expediente.ReviewSubsanar

	SintysSinCruce = expediente.SintysSinCruce
	SintysMatch    = expediente.SintysMatch
	SintysNoMatch  = expediente.SintysNoMatch

	RenaperSinValidar = expediente.RenaperSinValidar
	RenaperOK         = expediente.RenaperOK
	RenaperRechazado  = expediente.RenaperRechazado
	RenaperSubsanar   = expediente.RenaperSubsanar

	CupoNoEvaluado = expediente.CupoNoEvaluado
	CupoDentro     = expediente.CupoDentro
	CupoFuera      = expediente.CupoFuera

	MovementAlta = cupo.MovementAlta
	MovementBaja = cupo.MovementBaja
)

// OpenPreCupoStates re-exports the dedup window of the import engine.
var OpenPreCupoStates = expediente.OpenPreCupoStates

// ParseDocumentKind re-exports the spreadsheet document-kind parser.
var ParseDocumentKind = citizen.ParseDocumentKind

// NewCatalog re-exports the enum cache constructor.
var NewCatalog = reference.NewCatalog
