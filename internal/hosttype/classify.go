package hosttype

// ScalarKind is the value category of a scalar prop, used to check QBE
// function arguments.
type ScalarKind uint8

const (
	ScalarNone ScalarKind = iota
	ScalarString
	ScalarInt
	ScalarLong
	ScalarFloat
	ScalarDouble
	ScalarBoolean
	ScalarByte
	ScalarShort
	ScalarChar
	ScalarBigInteger
	ScalarBigDecimal
	ScalarTemporal
	ScalarUUID
)

var scalarNames = [...]string{
	ScalarNone:       "none",
	ScalarString:     "string",
	ScalarInt:        "int",
	ScalarLong:       "long",
	ScalarFloat:      "float",
	ScalarDouble:     "double",
	ScalarBoolean:    "boolean",
	ScalarByte:       "byte",
	ScalarShort:      "short",
	ScalarChar:       "char",
	ScalarBigInteger: "bigInteger",
	ScalarBigDecimal: "bigDecimal",
	ScalarTemporal:   "temporal",
	ScalarUUID:       "uuid",
}

func (k ScalarKind) String() string {
	if int(k) < len(scalarNames) {
		return scalarNames[k]
	}
	return "none"
}

// Comparable reports whether gt/ge/lt/le apply.
func (k ScalarKind) Comparable() bool {
	switch k {
	case ScalarNone, ScalarBoolean, ScalarUUID:
		return false
	default:
		return true
	}
}

// scalarTable is keyed by the erased simple name, so Java, Kotlin and class
// file spellings of the same type agree.
var scalarTable = map[string]ScalarKind{
	"String":         ScalarString,
	"string":         ScalarString,
	"CharSequence":   ScalarString,
	"int":            ScalarInt,
	"Integer":        ScalarInt,
	"Int":            ScalarInt,
	"long":           ScalarLong,
	"Long":           ScalarLong,
	"float":          ScalarFloat,
	"Float":          ScalarFloat,
	"double":         ScalarDouble,
	"Double":         ScalarDouble,
	"boolean":        ScalarBoolean,
	"Boolean":        ScalarBoolean,
	"byte":           ScalarByte,
	"Byte":           ScalarByte,
	"short":          ScalarShort,
	"Short":          ScalarShort,
	"char":           ScalarChar,
	"Character":      ScalarChar,
	"Char":           ScalarChar,
	"BigInteger":     ScalarBigInteger,
	"BigDecimal":     ScalarBigDecimal,
	"LocalDate":      ScalarTemporal,
	"LocalDateTime":  ScalarTemporal,
	"LocalTime":      ScalarTemporal,
	"Instant":        ScalarTemporal,
	"OffsetDateTime": ScalarTemporal,
	"ZonedDateTime":  ScalarTemporal,
	"Date":           ScalarTemporal,
	"UUID":           ScalarUUID,
}

// ScalarKindOf classifies a type ref by its erased simple name.
func ScalarKindOf(r TypeRef) ScalarKind {
	return scalarTable[r.SimpleName()]
}

// PropType is the single label shown for a prop in hover and completion.
type PropType uint8

const (
	PropID PropType = iota
	PropKey
	PropEmbedded
	PropFormula
	PropCalculation
	PropTransient
	PropRecursive
	PropAssociation
	PropList
	PropLogicalDeleted
	PropNullable
	PropProperty
)

var propTypeNames = [...]string{
	PropID:             "Id",
	PropKey:            "Key",
	PropEmbedded:       "Embedded",
	PropFormula:        "Formula",
	PropCalculation:    "Calculation",
	PropTransient:      "Transient",
	PropRecursive:      "Recursive",
	PropAssociation:    "Association",
	PropList:           "List",
	PropLogicalDeleted: "LogicalDeleted",
	PropNullable:       "Nullable",
	PropProperty:       "Property",
}

func (t PropType) String() string {
	if int(t) < len(propTypeNames) {
		return propTypeNames[t]
	}
	return "Property"
}

// PropTypeOf picks the first matching label in precedence order.
func PropTypeOf(p BaseProp) PropType {
	f := p.Facets()
	switch {
	case f.Has(FacetID):
		return PropID
	case f.Has(FacetKey):
		return PropKey
	case f.Has(FacetEmbedded):
		return PropEmbedded
	case f.Has(FacetFormula):
		return PropFormula
	case f.Has(FacetTransient):
		if f.Has(FacetTransientResolver) {
			return PropCalculation
		}
		return PropTransient
	case f.Has(FacetRecursive):
		return PropRecursive
	case f.Has(FacetEntityAssociation):
		return PropAssociation
	case f.Has(FacetList):
		return PropList
	case f.Has(FacetLogicalDeleted):
		return PropLogicalDeleted
	case f.Has(FacetNullable):
		return PropNullable
	default:
		return PropProperty
	}
}

// IsAutoScalar reports whether #allScalars selects p.
func IsAutoScalar(p BaseProp) bool {
	f := p.Facets()
	return f&(FacetFormula|FacetTransient|FacetIDView|FacetManyToManyView|FacetList|
		FacetEntityAssociation|FacetLogicalDeleted|FacetExcluded) == 0
}

// IsAutoReference reports whether #allReferences selects p.
func IsAutoReference(p BaseProp) bool {
	f := p.Facets()
	return f.Has(FacetEntityAssociation) && !f.Has(FacetList) && !f.Has(FacetTransient)
}
