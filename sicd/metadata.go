package sicd

import (
	"fmt"
	"time"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"github.com/arloliu/sario/dtype"
	"github.com/arloliu/sario/errs"
	"github.com/arloliu/sario/nitf"
	"github.com/arloliu/sario/transcode"
)

// SecurityFields is the classification group shared by the file header,
// image subheaders, and DES subheaders. The zero value is unclassified.
type SecurityFields struct {
	Clas string // classification level; defaults to "U"
	ClSy string
	Code string
	CtlH string
	Rel  string
	DcTp string
	DcDt string
	DcXm string
	Dg   string
	DgDt string
	ClTx string
	CatP string
	CAut string
	CRsn string
	SrDt string
	CtlN string
}

// apply sets the prefixed security fields on a header field view.
func (s SecurityFields) apply(f *nitf.Fields, prefix string) error {
	clas := s.Clas
	if clas == "" {
		clas = "U"
	}
	vals := []struct{ suffix, val string }{
		{"CLAS", clas}, {"CLSY", s.ClSy}, {"CODE", s.Code}, {"CTLH", s.CtlH},
		{"REL", s.Rel}, {"DCTP", s.DcTp}, {"DCDT", s.DcDt}, {"DCXM", s.DcXm},
		{"DG", s.Dg}, {"DGDT", s.DgDt}, {"CLTX", s.ClTx}, {"CATP", s.CatP},
		{"CAUT", s.CAut}, {"CRSN", s.CRsn}, {"SRDT", s.SrDt}, {"CTLN", s.CtlN},
	}
	for _, v := range vals {
		if err := f.SetStr(prefix+v.suffix, v.val); err != nil {
			return err
		}
	}

	return nil
}

// HeaderFields carries the operator-supplied file header values.
type HeaderFields struct {
	OStaID   string
	FTitle   string
	Security SecurityFields
	OName    string
	OPhone   string
}

// ImageSegmentFields carries the operator-supplied image subheader values,
// shared by every produced image segment.
type ImageSegmentFields struct {
	TgtID     string
	IID2      string
	Security  SecurityFields
	ISorce    string
	IComments []string
}

// DESegmentFields carries the operator-supplied DES subheader values.
type DESegmentFields struct {
	Security SecurityFields
	DESSHRP  string // responsible party
	DESSHLI  string // location identifier
	DESSHLIN string // location identifier namespace
	DESSHABS string // abstract
}

// pixelType describes one supported pixel format and its image subheader
// derivation.
type pixelType struct {
	dt      dtype.Dtype
	pvtype  string
	bits    int64
	subcats [2]string
}

var pixelTypes = map[string]pixelType{
	"RE32F_IM32F": {dt: dtype.CF8, pvtype: "R", bits: 32, subcats: [2]string{"I", "Q"}},
	"RE16I_IM16I": {
		dt:      dtype.Record(dtype.Field{Name: "I", Type: dtype.I2}, dtype.Field{Name: "Q", Type: dtype.I2}),
		pvtype:  "SI",
		bits:    16,
		subcats: [2]string{"I", "Q"},
	},
	"AMP8I_PHS8I": {
		dt:      dtype.Record(dtype.Field{Name: "AMP", Type: dtype.U1}, dtype.Field{Name: "PHS", Type: dtype.U1}),
		pvtype:  "INT",
		bits:    8,
		subcats: [2]string{"M", "P"},
	},
}

// PixelDtype returns the element type of a pixel type token
// (RE32F_IM32F, RE16I_IM16I, AMP8I_PHS8I).
//
// Returns:
//   - dtype.Dtype: Element type of one pixel
//   - error: errs.ErrLayout for an unknown token
func PixelDtype(token string) (dtype.Dtype, error) {
	pt, ok := pixelTypes[token]
	if !ok {
		return dtype.Dtype{}, fmt.Errorf("%w: unknown pixel type %q", errs.ErrLayout, token)
	}

	return pt.dt, nil
}

// Metadata is the complete description of one product: the XML instance plus
// the operator-supplied container header values. Treat it as immutable once
// handed to a Writer; the writer snapshots the serialized XML and the layout
// at construction.
type Metadata struct {
	// XML is the metadata instance. Owned by the Metadata.
	XML *etree.Document

	Header HeaderFields
	Image  ImageSegmentFields
	DES    DESegmentFields

	version  Version
	registry *transcode.Registry
}

// NewMetadata wraps a parsed XML instance. The document root must belong to
// the standard's namespace family; an unsupported version is accepted with a
// warning and treated as the latest supported version.
//
// Returns:
//   - *Metadata: Wrapped model
//   - error: errs.ErrMalformedHeader if the document has no root or a foreign
//     namespace
func NewMetadata(doc *etree.Document) (*Metadata, error) {
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: metadata document has no root element", errs.ErrMalformedHeader)
	}
	ns := root.NamespaceURI()
	if !isStandardNamespace(ns) {
		return nil, fmt.Errorf("%w: unexpected metadata namespace %q", errs.ErrMalformedHeader, ns)
	}

	version, ok := VersionByNamespace(ns)
	if !ok {
		Logger().Warn("unsupported metadata version, treating as latest",
			zap.String("namespace", ns),
			zap.String("latest", LatestVersion().Version))
		version = LatestVersion()
		version.Namespace = ns
	}

	return &Metadata{XML: doc, version: version, registry: defaultRegistry()}, nil
}

// Version returns the standard version resolved from the XML namespace.
func (m *Metadata) Version() Version {
	return m.version
}

// Registry returns the transcoder registry used for typed loads against the
// metadata tree.
func (m *Metadata) Registry() *transcode.Registry {
	return m.registry
}

// Load decodes the value at an element path of the metadata tree.
func (m *Metadata) Load(path string) (any, error) {
	return m.registry.Load(m.XML.Root(), path)
}

// Set encodes a value at an element path of the metadata tree, creating
// missing elements.
func (m *Metadata) Set(path string, v any) error {
	return m.registry.Set(m.XML.Root(), path, v)
}

func (m *Metadata) loadInt(path string) (int64, error) {
	v, err := m.Load(path)
	if err != nil {
		return 0, err
	}

	return v.(int64), nil
}

// NumRows returns ImageData/NumRows.
func (m *Metadata) NumRows() (int64, error) {
	return m.loadInt("ImageData/NumRows")
}

// NumCols returns ImageData/NumCols.
func (m *Metadata) NumCols() (int64, error) {
	return m.loadInt("ImageData/NumCols")
}

// PixelType returns the ImageData/PixelType token.
func (m *Metadata) PixelType() (string, error) {
	v, err := m.Load("ImageData/PixelType")
	if err != nil {
		return "", err
	}

	return v.(string), nil
}

// PixelDtype returns the element type implied by ImageData/PixelType.
func (m *Metadata) PixelDtype() (dtype.Dtype, error) {
	token, err := m.PixelType()
	if err != nil {
		return dtype.Dtype{}, err
	}

	return PixelDtype(token)
}

// ImageCorners returns the four GeoData/ImageCorners points as lat/lon
// degree pairs in FRFC, FRLC, LRLC, LRFC order.
func (m *Metadata) ImageCorners() ([4][2]float64, error) {
	v, err := m.Load("GeoData/ImageCorners")
	if err != nil {
		return [4][2]float64{}, err
	}

	return v.([4][2]float64), nil
}

// CollectStart returns Timeline/CollectStart.
func (m *Metadata) CollectStart() (time.Time, error) {
	v, err := m.Load("Timeline/CollectStart")
	if err != nil {
		return time.Time{}, err
	}

	return v.(time.Time), nil
}
