package sheet

import "strings"

// Canonical row fields. Spreadsheet headers are normalized and resolved
// against the alias table; unknown columns are ignored.
const (
	FieldSurname      = "surname"
	FieldGivenName    = "given_name"
	FieldDocument     = "document"
	FieldDocumentKind = "document_kind"
	FieldBirthDate    = "birth_date"
	FieldSex          = "sex"
	FieldNationality  = "nationality"
	FieldProvince     = "province"
	FieldMunicipality = "municipality"
	FieldLocality     = "locality"
	FieldAddress      = "address"
	FieldNumber       = "number"
	FieldPostalCode   = "postal_code"
	FieldEmail        = "email"
	FieldPhone        = "phone"

	// Caregiver mirror of the identity fields.
	FieldRespSurname      = "resp_surname"
	FieldRespGivenName    = "resp_given_name"
	FieldRespDocument     = "resp_document"
	FieldRespDocumentKind = "resp_document_kind"
	FieldRespBirthDate    = "resp_birth_date"
	FieldRespSex          = "resp_sex"
	FieldRespNationality  = "resp_nationality"
)

// TemplateHeaders is the fixed layout of the empty import template.
var TemplateHeaders = []string{
	"Apellido", "Nombre", "Tipo Documento", "Documento", "Fecha Nacimiento",
	"Sexo", "Nacionalidad", "Provincia", "Municipio", "Localidad",
	"Calle", "Numero", "Codigo Postal", "Email", "Telefono",
	"Apellido Responsable", "Nombre Responsable", "Tipo Documento Responsable",
	"Documento Responsable", "Fecha Nacimiento Responsable", "Sexo Responsable",
	"Nacionalidad Responsable",
}

// NumericFields are coerced to digits-only; an emptied value becomes null
// with a row warning.
var NumericFields = map[string]bool{
	FieldDocument:     true,
	FieldRespDocument: true,
	FieldPhone:        true,
	FieldPostalCode:   true,
	FieldNumber:       true,
}

var aliases = map[string]string{
	"apellido":  FieldSurname,
	"apellidos": FieldSurname,

	"nombre":  FieldGivenName,
	"nombres": FieldGivenName,

	"documento":        FieldDocument,
	"dni":              FieldDocument,
	"nro_documento":    FieldDocument,
	"numero_documento": FieldDocument,
	"nro_doc":          FieldDocument,

	"tipo_documento": FieldDocumentKind,
	"tipo_doc":       FieldDocumentKind,

	"fecha_nacimiento":    FieldBirthDate,
	"fecha_de_nacimiento": FieldBirthDate,
	"nacimiento":          FieldBirthDate,

	"sexo":   FieldSex,
	"genero": FieldSex,

	"nacionalidad": FieldNationality,

	"provincia": FieldProvince,
	"municipio": FieldMunicipality,
	"partido":   FieldMunicipality,
	"localidad": FieldLocality,

	"calle":     FieldAddress,
	"domicilio": FieldAddress,
	"direccion": FieldAddress,

	"numero": FieldNumber,
	"nro":    FieldNumber,
	"altura": FieldNumber,

	"codigo_postal": FieldPostalCode,
	"cp":            FieldPostalCode,

	"email":  FieldEmail,
	"correo": FieldEmail,
	"mail":   FieldEmail,

	"telefono": FieldPhone,
	"celular":  FieldPhone,

	"apellido_responsable": FieldRespSurname,
	"responsable_apellido": FieldRespSurname,

	"nombre_responsable": FieldRespGivenName,
	"responsable_nombre": FieldRespGivenName,

	"documento_responsable": FieldRespDocument,
	"dni_responsable":       FieldRespDocument,
	"responsable_documento": FieldRespDocument,
	"responsable_dni":       FieldRespDocument,

	"tipo_documento_responsable": FieldRespDocumentKind,
	"responsable_tipo_documento": FieldRespDocumentKind,

	"fecha_nacimiento_responsable": FieldRespBirthDate,
	"responsable_fecha_nacimiento": FieldRespBirthDate,

	"sexo_responsable": FieldRespSex,
	"responsable_sexo": FieldRespSex,

	"nacionalidad_responsable": FieldRespNationality,
	"responsable_nacionalidad": FieldRespNationality,
}

var accentReplacer = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u",
	"Á", "a", "É", "e", "Í", "i", "Ó", "o", "Ú", "u",
	"ñ", "n", "Ñ", "n", "°", "", "º", "",
)

// NormalizeHeader folds a header cell to lower-snake without accents.
func NormalizeHeader(h string) string {
	h = accentReplacer.Replace(strings.TrimSpace(h))
	h = strings.ToLower(h)
	fields := strings.FieldsFunc(h, func(r rune) bool {
		return r == ' ' || r == '-' || r == '.' || r == '/' || r == '\t'
	})
	return strings.Join(fields, "_")
}

// CanonicalField resolves a raw header to its canonical field name.
func CanonicalField(header string) (string, bool) {
	n := NormalizeHeader(header)
	if canon, ok := aliases[n]; ok {
		return canon, true
	}
	return "", false
}
