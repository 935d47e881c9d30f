package ogawa

import "fmt"

// Well-known (pod, extent) pairs used throughout the schema layer,
// grounded on the *_TYPE constants in original_source/src/pod.rs.
var (
	u8Type    = DataType{Pod: PodU8, Extent: 1}
	i32Type   = DataType{Pod: PodI32, Extent: 1}
	f32Type   = DataType{Pod: PodF32, Extent: 1}
	f32x2Type = DataType{Pod: PodF32, Extent: 2}
	f32x3Type = DataType{Pod: PodF32, Extent: 3}
	f64x6Type = DataType{Pod: PodF64, Extent: 6} // BOX_TYPE: a 3D bounding box as 6 doubles
	boolType  = DataType{Pod: PodBoolean, Extent: 1}
)

// SchemaKind identifies which typed view a schema-classified object was
// recognised as.
type SchemaKind int

const (
	SchemaCurves SchemaKind = iota
	SchemaGenericGeometry
	SchemaTransform
	SchemaPolygonalMesh
)

func (k SchemaKind) String() string {
	switch k {
	case SchemaCurves:
		return "Curves"
	case SchemaGenericGeometry:
		return "GenericGeometry"
	case SchemaTransform:
		return "Transform"
	case SchemaPolygonalMesh:
		return "PolygonalMesh"
	default:
		return fmt.Sprintf("SchemaKind(%d)", int(k))
	}
}

var schemaTokens = map[string]SchemaKind{
	"AbcGeom_Curve_v2":    SchemaCurves,
	"AbcGeom_GeomBase_v1": SchemaGenericGeometry,
	"AbcGeom_Xform_v3":    SchemaTransform,
	"AbcGeom_PolyMesh_v1": SchemaPolygonalMesh,
}

// ClassifySchema looks up the "schema" metadata token on object (falling
// back to the token on the metadata of its property root's first
// sub-compound, as real archives store the token one level down on the
// ".geom" node) and returns which kind it names. A missing token, or any
// token other than the four listed in schemaTokens, yields
// ErrIncompatibleSchema.
func ClassifySchema(src ByteSource, object *Object) (SchemaKind, error) {
	token, ok := object.Header.Metadata.Get("schema")
	if !ok {
		props, hasProps := object.Properties()
		if hasProps && props.Count() > 0 {
			sub, err := props.SubProperty(src, 0)
			if err == nil {
				if cp, isCompound := AsCompound(sub); isCompound {
					token, ok = cp.Header().Metadata.Get("schema")
				}
			}
		}
	}
	if !ok {
		return 0, fmt.Errorf("object %q has no schema token: %w", object.Header.FullName, ErrIncompatibleSchema)
	}

	kind, known := schemaTokens[token]
	if !known {
		return 0, fmt.Errorf("schema token %q: %w", token, ErrIncompatibleSchema)
	}
	return kind, nil
}

// loadSchemaRootProperties loads the compound-property root that schema
// construction operates on: sub-property 0 of the object's own property
// tree (matching every schema constructor in original_source, which all
// call properties.load_sub_property(0, ...) before reading named
// sub-properties off the result).
func loadSchemaRootProperties(src ByteSource, object *Object) (*CompoundProperty, error) {
	props, ok := object.Properties()
	if !ok {
		return nil, fmt.Errorf("object %q has no properties: %w", object.Header.FullName, ErrIncompatibleSchema)
	}

	sub, err := props.SubProperty(src, 0)
	if err != nil {
		return nil, err
	}

	cp, ok := AsCompound(sub)
	if !ok {
		return nil, fmt.Errorf("object %q: sub-property 0 is not compound: %w", object.Header.FullName, ErrIncompatibleSchema)
	}

	return cp, nil
}

// BoundingBox is an axis-aligned box, the payload of every schema's
// .selfBnds / .childBnds property.
type BoundingBox struct {
	Min [3]float64
	Max [3]float64
}

func loadBoundsSample(src ByteSource, p *ScalarProperty, index uint32) (BoundingBox, error) {
	arr, err := p.LoadSample(src, index)
	if err != nil {
		return BoundingBox{}, err
	}
	if len(arr.F64) != 6 {
		return BoundingBox{}, fmt.Errorf("selfBnds sample has %d f64s, want 6: %w", len(arr.F64), ErrInvalidArchive)
	}
	return BoundingBox{
		Min: [3]float64{arr.F64[0], arr.F64[1], arr.F64[2]},
		Max: [3]float64{arr.F64[3], arr.F64[4], arr.F64[5]},
	}, nil
}

// GenericGeometry is the base schema every bounded-geometry object
// carries: a single required .selfBnds bounding-box property.
type GenericGeometry struct {
	selfBounds *ScalarProperty
}

// newGenericGeometry builds a GenericGeometry from an already-loaded
// compound-property root (used standalone for the GenericGeometry schema,
// and composed into Curves/PolygonalMesh which share the same base).
func newGenericGeometry(src ByteSource, properties *CompoundProperty) (GenericGeometry, error) {
	p, ok, err := properties.SubPropertyByNameChecked(src, ".selfBnds", f64x6Type)
	if err != nil {
		return GenericGeometry{}, err
	}
	if !ok {
		return GenericGeometry{}, fmt.Errorf(".selfBnds missing: %w", ErrIncompatibleSchema)
	}
	sp, ok := AsScalar(p)
	if !ok {
		return GenericGeometry{}, fmt.Errorf(".selfBnds is not scalar: %w", ErrIncompatibleSchema)
	}
	return GenericGeometry{selfBounds: sp}, nil
}

// NewGenericGeometry classifies object directly as a GenericGeometry.
func NewGenericGeometry(src ByteSource, object *Object) (*GenericGeometry, error) {
	properties, err := loadSchemaRootProperties(src, object)
	if err != nil {
		return nil, err
	}
	g, err := newGenericGeometry(src, properties)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// LoadBounds decodes the .selfBnds sample at index.
func (g *GenericGeometry) LoadBounds(src ByteSource, index uint32) (BoundingBox, error) {
	return loadBoundsSample(src, g.selfBounds, index)
}

// TopologyVariance classifies how much of a [Curves] object's topology
// changes across samples.
type TopologyVariance int

const (
	ConstantTopology TopologyVariance = iota
	HomogeneousTopology
	HeterogeneousTopology
)

func (v TopologyVariance) String() string {
	switch v {
	case ConstantTopology:
		return "ConstantTopology"
	case HomogeneousTopology:
		return "HomogeneousTopology"
	default:
		return "HeterogeneousTopology"
	}
}

// CurveType is the first byte of a curveBasisAndType sample.
type CurveType uint8

const (
	CurveCubic         CurveType = 0
	CurveLinear        CurveType = 1
	CurveVariableOrder CurveType = 2
)

// CurvePeriodicity is the second byte of a curveBasisAndType sample.
type CurvePeriodicity uint8

const (
	NonPeriodic CurvePeriodicity = 0
	Periodic    CurvePeriodicity = 1
)

// BasisType is the third byte of a curveBasisAndType sample.
type BasisType uint8

const (
	BasisNone       BasisType = 0
	BasisBezier     BasisType = 1
	BasisBspline    BasisType = 2
	BasisCatmullrom BasisType = 3
	BasisHermite    BasisType = 4
	BasisPower      BasisType = 5
)

func curveTypeFromByte(b uint8) (CurveType, error) {
	if b > uint8(CurveVariableOrder) {
		return 0, fmt.Errorf("curve type %d out of range: %w", b, ErrInvalidArchive)
	}
	return CurveType(b), nil
}

func periodicityFromByte(b uint8) (CurvePeriodicity, error) {
	if b > uint8(Periodic) {
		return 0, fmt.Errorf("curve periodicity %d out of range: %w", b, ErrInvalidArchive)
	}
	return CurvePeriodicity(b), nil
}

func basisTypeFromByte(b uint8) (BasisType, error) {
	if b > uint8(BasisPower) {
		return 0, fmt.Errorf("curve basis type %d out of range: %w", b, ErrInvalidArchive)
	}
	return BasisType(b), nil
}

// Curves is the typed view for an AbcGeom_Curve_v2 object: curve
// positions, per-curve vertex counts, and a basis/type/periodicity
// descriptor, plus a set of optional per-point attributes.
type Curves struct {
	GenericGeometry

	positions         *ArrayProperty
	nVertices         *ArrayProperty
	curveBasisAndType *ScalarProperty

	positionWeights *ArrayProperty
	uv              *ArrayProperty
	normals         *ArrayProperty
	width           *ArrayProperty
	velocities      *ArrayProperty
	orders          *ArrayProperty
	knots           *ArrayProperty
}

// NewCurves classifies object as a [Curves] schema, type-checking every
// present property (required or optional) except curveBasisAndType
// against its expected (pod, extent).
func NewCurves(src ByteSource, object *Object) (*Curves, error) {
	properties, err := loadSchemaRootProperties(src, object)
	if err != nil {
		return nil, err
	}

	base, err := newGenericGeometry(src, properties)
	if err != nil {
		return nil, err
	}

	positions, err := requireArray(src, properties, "P", f32x3Type)
	if err != nil {
		return nil, err
	}
	nVertices, err := requireArray(src, properties, "nVertices", i32Type)
	if err != nil {
		return nil, err
	}

	// curveBasisAndType is declared "scalar" in the property header but
	// its sample payload is a short array (>= 3 bytes); no (pod, extent)
	// check is performed here, matching the "any type" lookup in
	// original_source's CurvesSchema (resolved Open Question: tolerate
	// the scalar tag with an array-style payload).
	curveProp, ok, err := properties.SubPropertyByName(src, "curveBasisAndType")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("curveBasisAndType missing: %w", ErrIncompatibleSchema)
	}
	curveBasisAndType, ok := AsScalar(curveProp)
	if !ok {
		return nil, fmt.Errorf("curveBasisAndType is not scalar-kind: %w", ErrIncompatibleSchema)
	}

	positionWeights, err := optionalArray(src, properties, "w", f32Type)
	if err != nil {
		return nil, err
	}
	uv, err := optionalArray(src, properties, "uv", f32x2Type)
	if err != nil {
		return nil, err
	}
	normals, err := optionalArray(src, properties, "n", f32x3Type)
	if err != nil {
		return nil, err
	}
	width, err := optionalArray(src, properties, "width", f32Type)
	if err != nil {
		return nil, err
	}
	velocities, err := optionalArray(src, properties, ".velocities", f32x3Type)
	if err != nil {
		return nil, err
	}
	orders, err := optionalArray(src, properties, ".orders", u8Type)
	if err != nil {
		return nil, err
	}
	knots, err := optionalArray(src, properties, ".knots", f32Type)
	if err != nil {
		return nil, err
	}

	return &Curves{
		GenericGeometry:   base,
		positions:         positions,
		nVertices:         nVertices,
		curveBasisAndType: curveBasisAndType,
		positionWeights:   positionWeights,
		uv:                uv,
		normals:           normals,
		width:             width,
		velocities:        velocities,
		orders:            orders,
		knots:             knots,
	}, nil
}

func requireArray(src ByteSource, properties *CompoundProperty, name string, want DataType) (*ArrayProperty, error) {
	p, ok, err := properties.SubPropertyByNameChecked(src, name, want)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s missing: %w", name, ErrIncompatibleSchema)
	}
	ap, ok := AsArray(p)
	if !ok {
		return nil, fmt.Errorf("%s is not an array property: %w", name, ErrIncompatibleSchema)
	}
	return ap, nil
}

func optionalArray(src ByteSource, properties *CompoundProperty, name string, want DataType) (*ArrayProperty, error) {
	p, ok, err := properties.SubPropertyByNameChecked(src, name, want)
	if err != nil || !ok {
		return nil, err
	}
	ap, ok := AsArray(p)
	if !ok {
		return nil, fmt.Errorf("%s is not an array property: %w", name, ErrIncompatibleSchema)
	}
	return ap, nil
}

func optionalCompound(src ByteSource, properties *CompoundProperty, name string) (*CompoundProperty, error) {
	p, ok, err := properties.SubPropertyByName(src, name)
	if err != nil || !ok {
		return nil, err
	}
	cp, ok := AsCompound(p)
	if !ok {
		return nil, fmt.Errorf("%s is not a compound property: %w", name, ErrIncompatibleSchema)
	}
	return cp, nil
}

// TopologyVariance classifies the constancy of this curve's shape across
// samples: ConstantTopology (every positional property constant),
// HomogeneousTopology (counts/type constant but points vary),
// HeterogeneousTopology (counts themselves vary).
func (c *Curves) TopologyVariance() TopologyVariance {
	if !c.nVertices.IsConstant() || !c.curveBasisAndType.IsConstant() {
		return HeterogeneousTopology
	}

	pointsConstant := c.positions.IsConstant()
	if c.positionWeights != nil {
		pointsConstant = pointsConstant && c.positionWeights.IsConstant()
	}

	if pointsConstant {
		return ConstantTopology
	}
	return HomogeneousTopology
}

func (c *Curves) HasPositionWeights() bool { return c.positionWeights != nil }
func (c *Curves) HasUV() bool              { return c.uv != nil }
func (c *Curves) HasNormals() bool         { return c.normals != nil }
func (c *Curves) HasWidth() bool           { return c.width != nil }
func (c *Curves) HasVelocities() bool      { return c.velocities != nil }
func (c *Curves) HasOrders() bool          { return c.orders != nil }
func (c *Curves) HasKnots() bool           { return c.knots != nil }

// LoadCurveType decodes the curveBasisAndType sample at index as
// (curve type, periodicity, basis type) from its leading 3 bytes.
func (c *Curves) LoadCurveType(src ByteSource, index uint32) (CurveType, CurvePeriodicity, BasisType, error) {
	arr, err := c.curveBasisAndType.LoadSample(src, index)
	if err != nil {
		return 0, 0, 0, err
	}
	if len(arr.U8) < 3 {
		return 0, 0, 0, fmt.Errorf("curveBasisAndType sample has %d bytes, want >= 3: %w", len(arr.U8), ErrInvalidArchive)
	}

	ct, err := curveTypeFromByte(arr.U8[0])
	if err != nil {
		return 0, 0, 0, err
	}
	cp, err := periodicityFromByte(arr.U8[1])
	if err != nil {
		return 0, 0, 0, err
	}
	bt, err := basisTypeFromByte(arr.U8[2])
	if err != nil {
		return 0, 0, 0, err
	}
	return ct, cp, bt, nil
}

// LoadPositions decodes the P sample at index into 3-float tuples.
func (c *Curves) LoadPositions(src ByteSource, index uint32) ([][3]float32, error) {
	arr, err := c.positions.LoadSample(src, index)
	if err != nil {
		return nil, err
	}
	return chunkVectorBy3(arr.F32)
}

// LoadNVertices decodes the nVertices sample at index.
func (c *Curves) LoadNVertices(src ByteSource, index uint32) ([]int32, error) {
	arr, err := c.nVertices.LoadSample(src, index)
	if err != nil {
		return nil, err
	}
	return arr.I32, nil
}

// LoadUV decodes the uv sample at index, if present.
func (c *Curves) LoadUV(src ByteSource, index uint32) ([][2]float32, error) {
	if c.uv == nil {
		return nil, nil
	}
	arr, err := c.uv.LoadSample(src, index)
	if err != nil {
		return nil, err
	}
	return chunkVectorBy2(arr.F32)
}

// LoadWidths decodes the width sample at index, if present.
func (c *Curves) LoadWidths(src ByteSource, index uint32) ([]float32, error) {
	if c.width == nil {
		return nil, nil
	}
	arr, err := c.width.LoadSample(src, index)
	if err != nil {
		return nil, err
	}
	return arr.F32, nil
}

// LoadVelocities decodes the .velocities sample at index, if present.
func (c *Curves) LoadVelocities(src ByteSource, index uint32) ([][3]float32, error) {
	if c.velocities == nil {
		return nil, nil
	}
	arr, err := c.velocities.LoadSample(src, index)
	if err != nil {
		return nil, err
	}
	return chunkVectorBy3(arr.F32)
}

// Transform is the typed view for an AbcGeom_Xform_v3 object.
type Transform struct {
	childBounds       *ScalarProperty
	inherits          *ScalarProperty
	vals              Property
	arbGeomParams     *CompoundProperty
	userProperties    *CompoundProperty
	isConstantIdent   bool
	isConstant        bool
}

// NewTransform classifies object as a [Transform] schema.
func NewTransform(src ByteSource, object *Object) (*Transform, error) {
	properties, err := loadSchemaRootProperties(src, object)
	if err != nil {
		return nil, err
	}

	childBoundsProp, ok, err := properties.SubPropertyByNameChecked(src, ".childBnds", f64x6Type)
	if err != nil {
		return nil, err
	}
	var childBounds *ScalarProperty
	if ok {
		childBounds, ok = AsScalar(childBoundsProp)
		if !ok {
			return nil, fmt.Errorf(".childBnds is not scalar: %w", ErrIncompatibleSchema)
		}
	}

	inheritsProp, ok, err := properties.SubPropertyByNameChecked(src, ".inherits", boolType)
	if err != nil {
		return nil, err
	}
	var inherits *ScalarProperty
	if ok {
		inherits, ok = AsScalar(inheritsProp)
		if !ok {
			return nil, fmt.Errorf(".inherits is not scalar: %w", ErrIncompatibleSchema)
		}
	}

	// .vals may be scalar or array and is not type-checked (original
	// source leaves the data-type check as an explicit TODO).
	vals, hasVals, err := properties.SubPropertyByName(src, ".vals")
	if err != nil {
		return nil, err
	}

	// Dot-prefixed property name, matching the rest of this schema's
	// reserved properties (.vals, .inherits) rather than a bare identifier.
	_, hasNotConstantIdentity := properties.FindByName(".isNotConstantIdentity")
	isConstantIdent := !hasNotConstantIdentity

	isConstant := true
	if hasVals {
		switch v := vals.(type) {
		case *ArrayProperty:
			isConstant = v.IsConstant()
		case *ScalarProperty:
			isConstant = v.IsConstant()
		default:
			return nil, fmt.Errorf(".vals has unexpected kind %s: %w", vals.Kind(), ErrIncompatibleSchema)
		}
	}
	if inherits != nil {
		isConstant = isConstant && inherits.IsConstant()
	}

	arbGeomParams, err := optionalCompound(src, properties, ".arbGeomParams")
	if err != nil {
		return nil, err
	}
	userProperties, err := optionalCompound(src, properties, ".userProperties")
	if err != nil {
		return nil, err
	}

	var valsProp Property
	if hasVals {
		valsProp = vals
	}

	return &Transform{
		childBounds:     childBounds,
		inherits:        inherits,
		vals:            valsProp,
		arbGeomParams:   arbGeomParams,
		userProperties:  userProperties,
		isConstantIdent: isConstantIdent,
		isConstant:      isConstant,
	}, nil
}

func (t *Transform) IsConstant() bool         { return t.isConstant }
func (t *Transform) IsConstantIdentity() bool { return t.isConstantIdent }

// ArbGeomParams returns the optional arbitrary-geometry-parameters
// compound, if present.
func (t *Transform) ArbGeomParams() (*CompoundProperty, bool) {
	return t.arbGeomParams, t.arbGeomParams != nil
}

// UserProperties returns the optional user-properties compound, if
// present.
func (t *Transform) UserProperties() (*CompoundProperty, bool) {
	return t.userProperties, t.userProperties != nil
}

// LoadChildBounds decodes the .childBnds sample at index, if present.
func (t *Transform) LoadChildBounds(src ByteSource, index uint32) (BoundingBox, bool, error) {
	if t.childBounds == nil {
		return BoundingBox{}, false, nil
	}
	b, err := loadBoundsSample(src, t.childBounds, index)
	return b, true, err
}

// PolygonalMesh is the typed view for an AbcGeom_PolyMesh_v1 object.
type PolygonalMesh struct {
	GenericGeometry

	vertices     *ArrayProperty
	faceIndices  *ArrayProperty
	faceCounts   *ArrayProperty
	normals      *ArrayProperty
	uv           *CompoundProperty
	velocities   *ArrayProperty
}

// NewPolygonalMesh classifies object as a [PolygonalMesh] schema.
func NewPolygonalMesh(src ByteSource, object *Object) (*PolygonalMesh, error) {
	properties, err := loadSchemaRootProperties(src, object)
	if err != nil {
		return nil, err
	}

	base, err := newGenericGeometry(src, properties)
	if err != nil {
		return nil, err
	}

	vertices, err := requireArray(src, properties, "P", f32x3Type)
	if err != nil {
		return nil, err
	}
	faceIndices, err := requireArray(src, properties, ".faceIndices", i32Type)
	if err != nil {
		return nil, err
	}
	faceCounts, err := requireArray(src, properties, ".faceCounts", i32Type)
	if err != nil {
		return nil, err
	}

	normals, err := optionalArray(src, properties, "N", f32x3Type)
	if err != nil {
		return nil, err
	}
	uv, err := optionalCompound(src, properties, "uv")
	if err != nil {
		return nil, err
	}
	velocities, err := optionalArray(src, properties, "velocities", f32x3Type)
	if err != nil {
		return nil, err
	}

	return &PolygonalMesh{
		GenericGeometry: base,
		vertices:        vertices,
		faceIndices:     faceIndices,
		faceCounts:      faceCounts,
		normals:         normals,
		uv:              uv,
		velocities:      velocities,
	}, nil
}

func (m *PolygonalMesh) HasNormals() bool    { return m.normals != nil }
func (m *PolygonalMesh) HasUV() bool         { return m.uv != nil }
func (m *PolygonalMesh) HasVelocities() bool { return m.velocities != nil }

// LoadVertices decodes the P sample at index into 3-float tuples.
func (m *PolygonalMesh) LoadVertices(src ByteSource, index uint32) ([][3]float32, error) {
	arr, err := m.vertices.LoadSample(src, index)
	if err != nil {
		return nil, err
	}
	return chunkVectorBy3(arr.F32)
}

// LoadFaceCounts decodes the .faceCounts sample at index.
func (m *PolygonalMesh) LoadFaceCounts(src ByteSource, index uint32) ([]int32, error) {
	arr, err := m.faceCounts.LoadSample(src, index)
	if err != nil {
		return nil, err
	}
	return arr.I32, nil
}

// LoadFaceIndices decodes the .faceIndices sample at index.
func (m *PolygonalMesh) LoadFaceIndices(src ByteSource, index uint32) ([]int32, error) {
	arr, err := m.faceIndices.LoadSample(src, index)
	if err != nil {
		return nil, err
	}
	return arr.I32, nil
}
