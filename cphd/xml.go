package cphd

import (
	"fmt"
	"sync"

	"github.com/beevik/etree"

	"github.com/arloliu/sario/dtype"
	"github.com/arloliu/sario/transcode"
)

// PVP describes one per-vector parameter field: its position and width in
// 8-byte words within a vector record, and its element format.
type PVP struct {
	// Name is set for AddedPVP fields only.
	Name   string
	Offset int64
	Size   int64
	Format dtype.Dtype
}

// PVPType transcodes PVP field descriptions (Offset/Size/Format children,
// plus Name for AddedPVP). Value type: PVP.
type PVPType struct {
	// Added includes the Name child (PVP/AddedPVP elements).
	Added bool
}

func (p PVPType) sequence() transcode.SequenceType {
	names := []string{"Offset", "Size", "Format"}
	if p.Added {
		names = append([]string{"Name"}, names...)
	}

	return transcode.SequenceType{
		Names: names,
		Subs: map[string]transcode.Transcoder{
			"Name":   transcode.TextType{},
			"Offset": transcode.IntType{},
			"Size":   transcode.IntType{},
			"Format": transcode.TextType{},
		},
	}
}

func (p PVPType) DecodeElem(elem *etree.Element) (any, error) {
	v, err := p.sequence().DecodeElem(elem)
	if err != nil {
		return nil, err
	}
	m := v.(map[string]any)

	out := PVP{}
	for _, req := range []string{"Offset", "Size", "Format"} {
		if _, present := m[req]; !present {
			return nil, fmt.Errorf("element %s: missing %s child", elem.Tag, req)
		}
	}
	out.Offset = m["Offset"].(int64)
	out.Size = m["Size"].(int64)
	format, err := dtype.Parse(m["Format"].(string))
	if err != nil {
		return nil, fmt.Errorf("element %s: %w", elem.Tag, err)
	}
	out.Format = format
	if p.Added {
		name, present := m["Name"]
		if !present {
			return nil, fmt.Errorf("element %s: missing Name child", elem.Tag)
		}
		out.Name = name.(string)
	}

	return out, nil
}

func (p PVPType) EncodeElem(elem *etree.Element, v any) error {
	field, ok := v.(PVP)
	if !ok {
		return fmt.Errorf("element %s: expected cphd.PVP value, got %T", elem.Tag, v)
	}

	m := map[string]any{
		"Offset": field.Offset,
		"Size":   field.Size,
		"Format": field.Format.String(),
	}
	if p.Added {
		m["Name"] = field.Name
	}

	return p.sequence().EncodeElem(elem, m)
}

func (p PVPType) ChildTranscoders() map[string]transcode.Transcoder {
	return p.sequence().Subs
}

// ImageAreaCornerPointsType transcodes SceneCoordinates/ImageAreaCornerPoints:
// four IACP children with index attributes 1..4, each a Lat/Lon pair.
// Value type: [4][2]float64.
type ImageAreaCornerPointsType struct{}

func (ImageAreaCornerPointsType) list() transcode.ListType {
	return transcode.ListType{
		SubTag:       "IACP",
		Sub:          transcode.NewLatLonType(),
		IndexStart:   1,
		OmitSizeAttr: true,
	}
}

func (t ImageAreaCornerPointsType) DecodeElem(elem *etree.Element) (any, error) {
	v, err := t.list().DecodeElem(elem)
	if err != nil {
		return nil, err
	}
	items := v.([]any)
	if len(items) != 4 {
		return nil, fmt.Errorf("element %s: expected 4 corner points, got %d", elem.Tag, len(items))
	}

	var out [4][2]float64
	for i, item := range items {
		out[i] = item.([2]float64)
	}

	return out, nil
}

func (t ImageAreaCornerPointsType) EncodeElem(elem *etree.Element, v any) error {
	corners, ok := v.([4][2]float64)
	if !ok {
		return fmt.Errorf("element %s: expected [4][2]float64 value, got %T", elem.Tag, v)
	}

	items := make([]any, 4)
	for i, c := range corners {
		items[i] = c
	}

	return t.list().EncodeElem(elem, items)
}

func (t ImageAreaCornerPointsType) ChildTranscoders() map[string]transcode.Transcoder {
	return t.list().ChildTranscoders()
}

var (
	registryOnce sync.Once
	registry     *transcode.Registry
)

// defaultRegistry returns the shared registry; it is built once and is safe
// for concurrent lookups.
func defaultRegistry() *transcode.Registry {
	registryOnce.Do(func() {
		registry = NewRegistry()
	})

	return registry
}

// pvpNames are the standard per-vector parameter elements under PVP.
var pvpNames = []string{
	"TxTime", "TxPos", "TxVel",
	"RcvTime", "RcvPos", "RcvVel",
	"SRPPos", "AmpSF",
	"aFDOP", "aFRR1", "aFRR2",
	"FX1", "FX2", "FXN1", "FXN2",
	"TOA1", "TOA2", "TOAE1", "TOAE2",
	"TDTropoSRP", "TDIonoSRP",
	"SC0", "SCSS", "SIGNAL",
	"TxAntenna/TxACX", "TxAntenna/TxACY", "TxAntenna/TxEB",
	"RcvAntenna/RcvACX", "RcvAntenna/RcvACY", "RcvAntenna/RcvEB",
}

// NewRegistry builds a transcoder registry covering the metadata tree for
// every supported standard version. Patterns are namespace-wildcarded;
// version differences are purely additive element sets.
func NewRegistry() *transcode.Registry {
	txt := transcode.TextType{}
	integer := transcode.IntType{}
	dbl := transcode.DoubleType{}
	boolean := transcode.BoolType{}
	xdt := transcode.DateTimeType{}
	hex := transcode.HexType{}
	param := transcode.ParameterType{}
	xyz := transcode.NewXYZType()
	latLon := transcode.NewLatLonType()
	latLonHAE := transcode.NewLatLonHAEType()
	xy := transcode.NewXYType()
	lineSamp := transcode.NewLineSampType()
	poly := transcode.Poly1DType{}
	poly2d := transcode.Poly2DType{}
	xyzPoly := transcode.XYZPolyType{}

	table := map[string]transcode.Transcoder{
		"CollectionID/CollectorName":      txt,
		"CollectionID/IlluminatorName":    txt,
		"CollectionID/CoreName":           txt,
		"CollectionID/CollectType":        txt,
		"CollectionID/RadarMode/ModeType": txt,
		"CollectionID/RadarMode/ModeID":   txt,
		"CollectionID/Classification":     txt,
		"CollectionID/ReleaseInfo":        txt,
		"CollectionID/CountryCode":        txt,
		"CollectionID/Parameter":          param,

		"Global/DomainType":                  txt,
		"Global/SGN":                         integer,
		"Global/Timeline/CollectionStart":    xdt,
		"Global/Timeline/RcvCollectionStart": xdt,
		"Global/Timeline/TxTime1":            dbl,
		"Global/Timeline/TxTime2":            dbl,
		"Global/FxBand/FxMin":                dbl,
		"Global/FxBand/FxMax":                dbl,
		"Global/TOASwath/TOAMin":             dbl,
		"Global/TOASwath/TOAMax":             dbl,
		"Global/TropoParameters/N0":          dbl,
		"Global/TropoParameters/RefHeight":   txt,
		"Global/IonoParameters/TECV":         dbl,
		"Global/IonoParameters/F2Height":     dbl,

		"SceneCoordinates/EarthModel":                                   txt,
		"SceneCoordinates/IARP/ECF":                                     xyz,
		"SceneCoordinates/IARP/LLH":                                     latLonHAE,
		"SceneCoordinates/ReferenceSurface/Planar/uIAX":                 xyz,
		"SceneCoordinates/ReferenceSurface/Planar/uIAY":                 xyz,
		"SceneCoordinates/ReferenceSurface/HAE/uIAXLL":                  latLon,
		"SceneCoordinates/ReferenceSurface/HAE/uIAYLL":                  latLon,
		"SceneCoordinates/ImageArea/X1Y1":                               xy,
		"SceneCoordinates/ImageArea/X2Y2":                               xy,
		"SceneCoordinates/ImageArea/Polygon":                            transcode.ListType{SubTag: "Vertex", Sub: xy, IndexStart: 1},
		"SceneCoordinates/ImageAreaCornerPoints":                        ImageAreaCornerPointsType{},
		"SceneCoordinates/ExtendedArea/X1Y1":                            xy,
		"SceneCoordinates/ExtendedArea/X2Y2":                            xy,
		"SceneCoordinates/ExtendedArea/Polygon":                         transcode.ListType{SubTag: "Vertex", Sub: xy, IndexStart: 1},
		"SceneCoordinates/ImageGrid/Identifier":                         txt,
		"SceneCoordinates/ImageGrid/IARPLocation":                       lineSamp,
		"SceneCoordinates/ImageGrid/IAXExtent/LineSpacing":              dbl,
		"SceneCoordinates/ImageGrid/IAXExtent/FirstLine":                integer,
		"SceneCoordinates/ImageGrid/IAXExtent/NumLines":                 integer,
		"SceneCoordinates/ImageGrid/IAYExtent/SampleSpacing":            dbl,
		"SceneCoordinates/ImageGrid/IAYExtent/FirstSample":              integer,
		"SceneCoordinates/ImageGrid/IAYExtent/NumSamples":               integer,
		"SceneCoordinates/ImageGrid/SegmentList/NumSegments":            integer,
		"SceneCoordinates/ImageGrid/SegmentList/Segment/Identifier":     txt,
		"SceneCoordinates/ImageGrid/SegmentList/Segment/StartLine":      integer,
		"SceneCoordinates/ImageGrid/SegmentList/Segment/StartSample":    integer,
		"SceneCoordinates/ImageGrid/SegmentList/Segment/EndLine":        integer,
		"SceneCoordinates/ImageGrid/SegmentList/Segment/EndSample":      integer,
		"SceneCoordinates/ImageGrid/SegmentList/Segment/SegmentPolygon": transcode.ListType{SubTag: "SV", Sub: lineSamp, IndexStart: 1},

		"Data/SignalArrayFormat":             txt,
		"Data/NumBytesPVP":                   integer,
		"Data/NumCPHDChannels":               integer,
		"Data/SignalCompressionID":           txt,
		"Data/Channel/Identifier":            txt,
		"Data/Channel/NumVectors":            integer,
		"Data/Channel/NumSamples":            integer,
		"Data/Channel/SignalArrayByteOffset": integer,
		"Data/Channel/PVPArrayByteOffset":    integer,
		"Data/Channel/CompressedSignalSize":  integer,
		"Data/NumSupportArrays":              integer,
		"Data/SupportArray/Identifier":       txt,
		"Data/SupportArray/NumRows":          integer,
		"Data/SupportArray/NumCols":          integer,
		"Data/SupportArray/BytesPerElement":  integer,
		"Data/SupportArray/ArrayByteOffset":  integer,

		"Channel/RefChId":                                       txt,
		"Channel/FXFixedCPHD":                                   boolean,
		"Channel/TOAFixedCPHD":                                  boolean,
		"Channel/SRPFixedCPHD":                                  boolean,
		"Channel/Parameters/Identifier":                         txt,
		"Channel/Parameters/RefVectorIndex":                     integer,
		"Channel/Parameters/FXFixed":                            boolean,
		"Channel/Parameters/TOAFixed":                           boolean,
		"Channel/Parameters/SRPFixed":                           boolean,
		"Channel/Parameters/SignalNormal":                       boolean,
		"Channel/Parameters/Polarization/TxPol":                 txt,
		"Channel/Parameters/Polarization/RcvPol":                txt,
		"Channel/Parameters/Polarization/TxPolRef/AmpH":         dbl,
		"Channel/Parameters/Polarization/TxPolRef/AmpV":         dbl,
		"Channel/Parameters/Polarization/TxPolRef/PhaseV":       dbl,
		"Channel/Parameters/Polarization/RcvPolRef/AmpH":        dbl,
		"Channel/Parameters/Polarization/RcvPolRef/AmpV":        dbl,
		"Channel/Parameters/Polarization/RcvPolRef/PhaseV":      dbl,
		"Channel/Parameters/FxC":                                dbl,
		"Channel/Parameters/FxBW":                               dbl,
		"Channel/Parameters/FxBWNoise":                          dbl,
		"Channel/Parameters/TOASaved":                           dbl,
		"Channel/Parameters/TOAExtended/TOAExtSaved":            dbl,
		"Channel/Parameters/TOAExtended/LFMEclipse/FxEarlyLow":  dbl,
		"Channel/Parameters/TOAExtended/LFMEclipse/FxEarlyHigh": dbl,
		"Channel/Parameters/TOAExtended/LFMEclipse/FxLateLow":   dbl,
		"Channel/Parameters/TOAExtended/LFMEclipse/FxLateHigh":  dbl,
		"Channel/Parameters/DwellTimes/CODId":                   txt,
		"Channel/Parameters/DwellTimes/DwellId":                 txt,
		"Channel/Parameters/DwellTimes/DTAId":                   txt,
		"Channel/Parameters/DwellTimes/UseDTA":                  boolean,
		"Channel/Parameters/ImageArea/X1Y1":                     xy,
		"Channel/Parameters/ImageArea/X2Y2":                     xy,
		"Channel/Parameters/ImageArea/Polygon":                  transcode.ListType{SubTag: "Vertex", Sub: xy, IndexStart: 1},
		"Channel/Parameters/Antenna/TxAPCId":                    txt,
		"Channel/Parameters/Antenna/TxAPATId":                   txt,
		"Channel/Parameters/Antenna/RcvAPCId":                   txt,
		"Channel/Parameters/Antenna/RcvAPATId":                  txt,
		"Channel/Parameters/TxRcv/TxWFId":                       txt,
		"Channel/Parameters/TxRcv/RcvId":                        txt,
		"Channel/Parameters/TgtRefLevel/PTRef":                  dbl,
		"Channel/Parameters/NoiseLevel/PNRef":                   dbl,
		"Channel/Parameters/NoiseLevel/BNRef":                   dbl,
		"Channel/Parameters/NoiseLevel/FxNoiseProfile/Point/Fx": dbl,
		"Channel/Parameters/NoiseLevel/FxNoiseProfile/Point/PN": dbl,
		"Channel/AddedParameters/Parameter":                     param,

		"SupportArray/IAZArray/Identifier":             txt,
		"SupportArray/IAZArray/ElementFormat":          txt,
		"SupportArray/IAZArray/X0":                     dbl,
		"SupportArray/IAZArray/Y0":                     dbl,
		"SupportArray/IAZArray/XSS":                    dbl,
		"SupportArray/IAZArray/YSS":                    dbl,
		"SupportArray/IAZArray/NODATA":                 hex,
		"SupportArray/AntGainPhase/Identifier":         txt,
		"SupportArray/AntGainPhase/ElementFormat":      txt,
		"SupportArray/AntGainPhase/X0":                 dbl,
		"SupportArray/AntGainPhase/Y0":                 dbl,
		"SupportArray/AntGainPhase/XSS":                dbl,
		"SupportArray/AntGainPhase/YSS":                dbl,
		"SupportArray/AntGainPhase/NODATA":             hex,
		"SupportArray/DwellTimeArray/Identifier":       txt,
		"SupportArray/DwellTimeArray/ElementFormat":    txt,
		"SupportArray/DwellTimeArray/X0":               dbl,
		"SupportArray/DwellTimeArray/Y0":               dbl,
		"SupportArray/DwellTimeArray/XSS":              dbl,
		"SupportArray/DwellTimeArray/YSS":              dbl,
		"SupportArray/DwellTimeArray/NODATA":           hex,
		"SupportArray/AddedSupportArray/Identifier":    txt,
		"SupportArray/AddedSupportArray/ElementFormat": txt,
		"SupportArray/AddedSupportArray/X0":            dbl,
		"SupportArray/AddedSupportArray/Y0":            dbl,
		"SupportArray/AddedSupportArray/XSS":           dbl,
		"SupportArray/AddedSupportArray/YSS":           dbl,
		"SupportArray/AddedSupportArray/NODATA":        hex,
		"SupportArray/AddedSupportArray/XUnits":        txt,
		"SupportArray/AddedSupportArray/YUnits":        txt,
		"SupportArray/AddedSupportArray/ZUnits":        txt,
		"SupportArray/AddedSupportArray/Parameter":     param,

		"Dwell/NumCODTimes":             integer,
		"Dwell/CODTime/Identifier":      txt,
		"Dwell/CODTime/CODTimePoly":     poly2d,
		"Dwell/NumDwellTimes":           integer,
		"Dwell/DwellTime/Identifier":    txt,
		"Dwell/DwellTime/DwellTimePoly": poly2d,

		"ReferenceGeometry/SRP/ECF":                     xyz,
		"ReferenceGeometry/SRP/IAC":                     xyz,
		"ReferenceGeometry/ReferenceTime":               dbl,
		"ReferenceGeometry/SRPCODTime":                  dbl,
		"ReferenceGeometry/SRPDwellTime":                dbl,
		"ReferenceGeometry/Monostatic/ARPPos":           xyz,
		"ReferenceGeometry/Monostatic/ARPVel":           xyz,
		"ReferenceGeometry/Monostatic/SideOfTrack":      txt,
		"ReferenceGeometry/Monostatic/SlantRange":       dbl,
		"ReferenceGeometry/Monostatic/GroundRange":      dbl,
		"ReferenceGeometry/Monostatic/DopplerConeAngle": dbl,
		"ReferenceGeometry/Monostatic/GrazeAngle":       dbl,
		"ReferenceGeometry/Monostatic/IncidenceAngle":   dbl,
		"ReferenceGeometry/Monostatic/AzimuthAngle":     dbl,
		"ReferenceGeometry/Monostatic/TwistAngle":       dbl,
		"ReferenceGeometry/Monostatic/SlopeAngle":       dbl,
		"ReferenceGeometry/Monostatic/LayoverAngle":     dbl,
		"ReferenceGeometry/Bistatic/AzimuthAngle":       dbl,
		"ReferenceGeometry/Bistatic/AzimuthAngleRate":   dbl,
		"ReferenceGeometry/Bistatic/BistaticAngle":      dbl,
		"ReferenceGeometry/Bistatic/BistaticAngleRate":  dbl,
		"ReferenceGeometry/Bistatic/GrazeAngle":         dbl,
		"ReferenceGeometry/Bistatic/TwistAngle":         dbl,
		"ReferenceGeometry/Bistatic/SlopeAngle":         dbl,
		"ReferenceGeometry/Bistatic/LayoverAngle":       dbl,

		"Antenna/NumACFs":                             integer,
		"Antenna/NumAPCs":                             integer,
		"Antenna/NumAntPats":                          integer,
		"Antenna/AntCoordFrame/Identifier":            txt,
		"Antenna/AntCoordFrame/XAxisPoly":             xyzPoly,
		"Antenna/AntCoordFrame/YAxisPoly":             xyzPoly,
		"Antenna/AntCoordFrame/UseACFPVP":             boolean,
		"Antenna/AntPhaseCenter/Identifier":           txt,
		"Antenna/AntPhaseCenter/ACFId":                txt,
		"Antenna/AntPhaseCenter/APCXYZ":               xyz,
		"Antenna/AntPattern/Identifier":               txt,
		"Antenna/AntPattern/FreqZero":                 dbl,
		"Antenna/AntPattern/GainZero":                 dbl,
		"Antenna/AntPattern/EBFreqShift":              boolean,
		"Antenna/AntPattern/EBFreqShiftSF/DCXSF":      dbl,
		"Antenna/AntPattern/EBFreqShiftSF/DCYSF":      dbl,
		"Antenna/AntPattern/MLFreqDilation":           boolean,
		"Antenna/AntPattern/MLFreqDilationSF/DCXSF":   dbl,
		"Antenna/AntPattern/MLFreqDilationSF/DCYSF":   dbl,
		"Antenna/AntPattern/GainBSPoly":               poly,
		"Antenna/AntPattern/AntPolRef/AmpX":           dbl,
		"Antenna/AntPattern/AntPolRef/AmpY":           dbl,
		"Antenna/AntPattern/AntPolRef/PhaseY":         dbl,
		"Antenna/AntPattern/EB/DCXPoly":               poly,
		"Antenna/AntPattern/EB/DCYPoly":               poly,
		"Antenna/AntPattern/EB/UseEBPVP":              boolean,
		"Antenna/AntPattern/Array/GainPoly":           poly2d,
		"Antenna/AntPattern/Array/PhasePoly":          poly2d,
		"Antenna/AntPattern/Array/AntGPId":            txt,
		"Antenna/AntPattern/Element/GainPoly":         poly2d,
		"Antenna/AntPattern/Element/PhasePoly":        poly2d,
		"Antenna/AntPattern/Element/AntGPId":          txt,
		"Antenna/AntPattern/GainPhaseArray/Freq":      dbl,
		"Antenna/AntPattern/GainPhaseArray/ArrayId":   txt,
		"Antenna/AntPattern/GainPhaseArray/ElementId": txt,

		"TxRcv/NumTxWFs":                    integer,
		"TxRcv/TxWFParameters/Identifier":   txt,
		"TxRcv/TxWFParameters/PulseLength":  dbl,
		"TxRcv/TxWFParameters/RFBandwidth":  dbl,
		"TxRcv/TxWFParameters/FreqCenter":   dbl,
		"TxRcv/TxWFParameters/LFMRate":      dbl,
		"TxRcv/TxWFParameters/Polarization": txt,
		"TxRcv/TxWFParameters/Power":        dbl,
		"TxRcv/NumRcvs":                     integer,
		"TxRcv/RcvParameters/Identifier":    txt,
		"TxRcv/RcvParameters/WindowLength":  dbl,
		"TxRcv/RcvParameters/SampleRate":    dbl,
		"TxRcv/RcvParameters/IFFilterBW":    dbl,
		"TxRcv/RcvParameters/FreqCenter":    dbl,
		"TxRcv/RcvParameters/LFMRate":       dbl,
		"TxRcv/RcvParameters/Polarization":  txt,
		"TxRcv/RcvParameters/PathGain":      dbl,

		"ProductInfo/Profile":                  txt,
		"ProductInfo/CreationInfo/Application": txt,
		"ProductInfo/CreationInfo/DateTime":    xdt,
		"ProductInfo/CreationInfo/Site":        txt,
		"ProductInfo/CreationInfo/Parameter":   param,
		"ProductInfo/Parameter":                param,

		"GeoInfo/Desc":    param,
		"GeoInfo/Point":   latLon,
		"GeoInfo/Line":    transcode.ListType{SubTag: "Endpoint", Sub: latLon, IndexStart: 1},
		"GeoInfo/Polygon": transcode.ListType{SubTag: "Vertex", Sub: latLon, IndexStart: 1},

		"MatchInfo/NumMatchTypes":                        integer,
		"MatchInfo/MatchType/TypeID":                     txt,
		"MatchInfo/MatchType/CurrentIndex":               integer,
		"MatchInfo/MatchType/NumMatchCollections":        integer,
		"MatchInfo/MatchType/MatchCollection/CoreName":   txt,
		"MatchInfo/MatchType/MatchCollection/MatchIndex": integer,
		"MatchInfo/MatchType/MatchCollection/Parameter":  param,
	}

	for _, name := range pvpNames {
		table["PVP/"+name] = PVPType{}
	}
	table["PVP/AddedPVP"] = PVPType{Added: true}

	// reference geometry bistatic platforms
	for _, d := range []string{"Tx", "Rcv"} {
		base := "ReferenceGeometry/Bistatic/" + d + "Platform/"
		table[base+"Time"] = dbl
		table[base+"Pos"] = xyz
		table[base+"Vel"] = xyz
		table[base+"SideOfTrack"] = txt
		table[base+"SlantRange"] = dbl
		table[base+"GroundRange"] = dbl
		table[base+"DopplerConeAngle"] = dbl
		table[base+"GrazeAngle"] = dbl
		table[base+"IncidenceAngle"] = dbl
		table[base+"AzimuthAngle"] = dbl
	}

	corrCoefPairs := []string{
		"P1P2", "P1P3", "P1V1", "P1V2", "P1V3",
		"P2P3", "P2V1", "P2V2", "P2V3",
		"P3V1", "P3V2", "P3V3",
		"V1V2", "V1V3", "V2V3",
	}
	posVelErr := func(base string) {
		table[base+"/Frame"] = txt
		for _, c := range []string{"P1", "P2", "P3", "V1", "V2", "V3"} {
			table[base+"/"+c] = dbl
		}
		for _, pair := range corrCoefPairs {
			table[base+"/CorrCoefs/"+pair] = dbl
		}
		table[base+"/PositionDecorr/CorrCoefZero"] = dbl
		table[base+"/PositionDecorr/DecorrRate"] = dbl
	}
	decorr := func(base string) {
		table[base+"/CorrCoefZero"] = dbl
		table[base+"/DecorrRate"] = dbl
	}

	posVelErr("ErrorParameters/Monostatic/PosVelErr")
	table["ErrorParameters/Monostatic/RadarSensor/RangeBias"] = dbl
	table["ErrorParameters/Monostatic/RadarSensor/ClockFreqSF"] = dbl
	table["ErrorParameters/Monostatic/RadarSensor/CollectionStartTime"] = dbl
	decorr("ErrorParameters/Monostatic/RadarSensor/RangeBiasDecorr")
	table["ErrorParameters/Monostatic/TropoError/TropoRangeVertical"] = dbl
	table["ErrorParameters/Monostatic/TropoError/TropoRangeSlant"] = dbl
	decorr("ErrorParameters/Monostatic/TropoError/TropoRangeDecorr")
	table["ErrorParameters/Monostatic/IonoError/IonoRangeVertical"] = dbl
	table["ErrorParameters/Monostatic/IonoError/IonoRangeRateVertical"] = dbl
	table["ErrorParameters/Monostatic/IonoError/IonoRgRgRateCC"] = dbl
	decorr("ErrorParameters/Monostatic/IonoError/IonoRangeVertDecorr")
	table["ErrorParameters/Monostatic/AddedParameters/Parameter"] = param
	table["ErrorParameters/Bistatic/AddedParameters/Parameter"] = param
	for _, d := range []string{"Tx", "Rcv"} {
		base := "ErrorParameters/Bistatic/" + d + "Platform"
		posVelErr(base + "/PosVelErr")
		table[base+"/RadarSensor/DelayBias"] = dbl
		table[base+"/RadarSensor/ClockFreqSF"] = dbl
		table[base+"/RadarSensor/CollectionStartTime"] = dbl
	}

	reg := transcode.NewRegistry()
	for path, tc := range table {
		if err := reg.Register(path, tc); err != nil {
			// the table is static; a duplicate is a programming error
			panic(err)
		}
	}
	reg.CollapseRepeats("GeoInfo")

	return reg
}
