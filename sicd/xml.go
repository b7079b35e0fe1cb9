package sicd

import (
	"fmt"
	"sync"

	"github.com/beevik/etree"

	"github.com/arloliu/sario/transcode"
)

// cornerLabels are the ICP index attribute values, in corner order: first
// row first column, first row last column, last row last column, last row
// first column.
var cornerLabels = [4]string{"1:FRFC", "2:FRLC", "3:LRLC", "4:LRFC"}

// ImageCornersType transcodes GeoData/ImageCorners: four ICP children with
// labelled index attributes, each a Lat/Lon pair. Value type: [4][2]float64
// in FRFC, FRLC, LRLC, LRFC order.
type ImageCornersType struct{}

func (ImageCornersType) DecodeElem(elem *etree.Element) (any, error) {
	inner := transcode.ListType{SubTag: "ICP", Sub: transcode.NewLatLonType(), IndexStart: 1}
	v, err := inner.DecodeElem(elem)
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

func (ImageCornersType) EncodeElem(elem *etree.Element, v any) error {
	corners, ok := v.([4][2]float64)
	if !ok {
		return fmt.Errorf("element %s: expected [4][2]float64 value, got %T", elem.Tag, v)
	}

	inner := transcode.ListType{SubTag: "ICP", Sub: transcode.NewLatLonType(), OmitSizeAttr: true}
	items := make([]any, 4)
	for i, c := range corners {
		items[i] = c
	}
	if err := inner.EncodeElem(elem, items); err != nil {
		return err
	}
	for i, child := range elem.ChildElements() {
		child.RemoveAttr("index")
		child.CreateAttr("index", cornerLabels[i])
	}

	return nil
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

// NewRegistry builds a transcoder registry covering the metadata tree for
// every supported standard version. Patterns are namespace-wildcarded;
// version differences are purely additive element sets.
func NewRegistry() *transcode.Registry {
	txt := transcode.TextType{}
	integer := transcode.IntType{}
	dbl := transcode.DoubleType{}
	boolean := transcode.BoolType{}
	xdt := transcode.DateTimeType{}
	cmplx := transcode.ComplexType{}
	param := transcode.ParameterType{}
	xyz := transcode.NewXYZType()
	latLon := transcode.NewLatLonType()
	latLonHAE := transcode.NewLatLonHAEType()
	rowCol := transcode.RowColType{}
	poly := transcode.Poly1DType{}
	poly2d := transcode.Poly2DType{}
	xyzPoly := transcode.XYZPolyType{}

	table := map[string]transcode.Transcoder{
		"CollectionInfo/CollectorName":              txt,
		"CollectionInfo/IlluminatorName":            txt,
		"CollectionInfo/CoreName":                   txt,
		"CollectionInfo/CollectType":                txt,
		"CollectionInfo/RadarMode/ModeType":         txt,
		"CollectionInfo/RadarMode/ModeID":           txt,
		"CollectionInfo/Classification":             txt,
		"CollectionInfo/InformationSecurityMarking": txt,
		"CollectionInfo/CountryCode":                txt,
		"CollectionInfo/Parameter":                  param,

		"ImageCreation/Application": txt,
		"ImageCreation/DateTime":    xdt,
		"ImageCreation/Site":        txt,
		"ImageCreation/Profile":     txt,

		"ImageData/PixelType":         txt,
		"ImageData/AmpTable":          transcode.ListType{SubTag: "Amplitude", Sub: dbl, IndexStart: 0},
		"ImageData/NumRows":           integer,
		"ImageData/NumCols":           integer,
		"ImageData/FirstRow":          integer,
		"ImageData/FirstCol":          integer,
		"ImageData/FullImage/NumRows": integer,
		"ImageData/FullImage/NumCols": integer,
		"ImageData/SCPPixel":          rowCol,
		"ImageData/ValidData":         transcode.ListType{SubTag: "Vertex", Sub: rowCol, IndexStart: 1},

		"GeoData/EarthModel":      txt,
		"GeoData/SCP/ECF":         xyz,
		"GeoData/SCP/LLH":         latLonHAE,
		"GeoData/ImageCorners":    ImageCornersType{},
		"GeoData/ValidData":       transcode.ListType{SubTag: "Vertex", Sub: latLon, IndexStart: 1},
		"GeoData/GeoInfo/Desc":    param,
		"GeoData/GeoInfo/Point":   latLon,
		"GeoData/GeoInfo/Line":    transcode.ListType{SubTag: "Endpoint", Sub: latLon, IndexStart: 1},
		"GeoData/GeoInfo/Polygon": transcode.ListType{SubTag: "Vertex", Sub: latLon, IndexStart: 1},

		"Grid/ImagePlane":  txt,
		"Grid/Type":        txt,
		"Grid/TimeCOAPoly": poly2d,

		"Timeline/CollectStart":     xdt,
		"Timeline/CollectDuration":  dbl,
		"Timeline/IPP/Set/TStart":   dbl,
		"Timeline/IPP/Set/TEnd":     dbl,
		"Timeline/IPP/Set/IPPStart": integer,
		"Timeline/IPP/Set/IPPEnd":   integer,
		"Timeline/IPP/Set/IPPPoly":  poly,

		"Position/ARPPoly":           xyzPoly,
		"Position/GRPPoly":           xyzPoly,
		"Position/TxAPCPoly":         xyzPoly,
		"Position/RcvAPC/RcvAPCPoly": xyzPoly,

		"RadarCollection/TxFrequency/Min":                              dbl,
		"RadarCollection/TxFrequency/Max":                              dbl,
		"RadarCollection/RefFreqIndex":                                 integer,
		"RadarCollection/Waveform/WFParameters/TxPulseLength":          dbl,
		"RadarCollection/Waveform/WFParameters/TxRFBandwidth":          dbl,
		"RadarCollection/Waveform/WFParameters/TxFreqStart":            dbl,
		"RadarCollection/Waveform/WFParameters/TxFMRate":               dbl,
		"RadarCollection/Waveform/WFParameters/RcvDemodType":           txt,
		"RadarCollection/Waveform/WFParameters/RcvWindowLength":        dbl,
		"RadarCollection/Waveform/WFParameters/ADCSampleRate":          dbl,
		"RadarCollection/Waveform/WFParameters/RcvIFBandwidth":         dbl,
		"RadarCollection/Waveform/WFParameters/RcvFreqStart":           dbl,
		"RadarCollection/Waveform/WFParameters/RcvFMRate":              dbl,
		"RadarCollection/TxPolarization":                               txt,
		"RadarCollection/TxSequence/TxStep/WFIndex":                    integer,
		"RadarCollection/TxSequence/TxStep/TxPolarization":             txt,
		"RadarCollection/RcvChannels/ChanParameters/TxRcvPolarization": txt,
		"RadarCollection/RcvChannels/ChanParameters/RcvAPCIndex":       integer,
		"RadarCollection/Area/Corner": transcode.ListType{
			SubTag: "ACP", Sub: latLonHAE, IndexStart: 1, OmitSizeAttr: true,
		},
		"RadarCollection/Area/Plane/RefPt/ECF":                       xyz,
		"RadarCollection/Area/Plane/RefPt/Line":                      dbl,
		"RadarCollection/Area/Plane/RefPt/Sample":                    dbl,
		"RadarCollection/Area/Plane/XDir/UVectECF":                   xyz,
		"RadarCollection/Area/Plane/XDir/LineSpacing":                dbl,
		"RadarCollection/Area/Plane/XDir/NumLines":                   integer,
		"RadarCollection/Area/Plane/XDir/FirstLine":                  integer,
		"RadarCollection/Area/Plane/YDir/UVectECF":                   xyz,
		"RadarCollection/Area/Plane/YDir/SampleSpacing":              dbl,
		"RadarCollection/Area/Plane/YDir/NumSamples":                 integer,
		"RadarCollection/Area/Plane/YDir/FirstSample":                integer,
		"RadarCollection/Area/Plane/SegmentList/Segment/StartLine":   integer,
		"RadarCollection/Area/Plane/SegmentList/Segment/StartSample": integer,
		"RadarCollection/Area/Plane/SegmentList/Segment/EndLine":     integer,
		"RadarCollection/Area/Plane/SegmentList/Segment/EndSample":   integer,
		"RadarCollection/Area/Plane/SegmentList/Segment/Identifier":  txt,
		"RadarCollection/Area/Plane/Orientation":                     txt,
		"RadarCollection/Parameter":                                  param,

		"ImageFormation/RcvChanProc/NumChanProc":                            integer,
		"ImageFormation/RcvChanProc/PRFScaleFactor":                         dbl,
		"ImageFormation/RcvChanProc/ChanIndex":                              integer,
		"ImageFormation/TxRcvPolarizationProc":                              txt,
		"ImageFormation/TStartProc":                                         dbl,
		"ImageFormation/TEndProc":                                           dbl,
		"ImageFormation/TxFrequencyProc/MinProc":                            dbl,
		"ImageFormation/TxFrequencyProc/MaxProc":                            dbl,
		"ImageFormation/SegmentIdentifier":                                  txt,
		"ImageFormation/ImageFormAlgo":                                      txt,
		"ImageFormation/STBeamComp":                                         txt,
		"ImageFormation/ImageBeamComp":                                      txt,
		"ImageFormation/AzAutofocus":                                        txt,
		"ImageFormation/RgAutofocus":                                        txt,
		"ImageFormation/Processing/Type":                                    txt,
		"ImageFormation/Processing/Applied":                                 boolean,
		"ImageFormation/Processing/Parameter":                               param,
		"ImageFormation/PolarizationCalibration/DistortCorrectionApplied":   boolean,
		"ImageFormation/PolarizationCalibration/Distortion/CalibrationDate": xdt,
		"ImageFormation/PolarizationCalibration/Distortion/A":               dbl,
		"ImageFormation/PolarizationCalibration/Distortion/F1":              cmplx,
		"ImageFormation/PolarizationCalibration/Distortion/Q1":              cmplx,
		"ImageFormation/PolarizationCalibration/Distortion/Q2":              cmplx,
		"ImageFormation/PolarizationCalibration/Distortion/F2":              cmplx,
		"ImageFormation/PolarizationCalibration/Distortion/Q3":              cmplx,
		"ImageFormation/PolarizationCalibration/Distortion/Q4":              cmplx,
		"ImageFormation/PolarizationCalibration/Distortion/GainErrorA":      dbl,
		"ImageFormation/PolarizationCalibration/Distortion/GainErrorF1":     dbl,
		"ImageFormation/PolarizationCalibration/Distortion/GainErrorF2":     dbl,
		"ImageFormation/PolarizationCalibration/Distortion/PhaseErrorF1":    dbl,
		"ImageFormation/PolarizationCalibration/Distortion/PhaseErrorF2":    dbl,

		"SCPCOA/SCPTime":                  dbl,
		"SCPCOA/ARPPos":                   xyz,
		"SCPCOA/ARPVel":                   xyz,
		"SCPCOA/ARPAcc":                   xyz,
		"SCPCOA/SideOfTrack":              txt,
		"SCPCOA/SlantRange":               dbl,
		"SCPCOA/GroundRange":              dbl,
		"SCPCOA/DopplerConeAng":           dbl,
		"SCPCOA/GrazeAng":                 dbl,
		"SCPCOA/IncidenceAng":             dbl,
		"SCPCOA/TwistAng":                 dbl,
		"SCPCOA/SlopeAng":                 dbl,
		"SCPCOA/AzimAng":                  dbl,
		"SCPCOA/LayoverAng":               dbl,
		"SCPCOA/Bistatic/BistaticAng":     dbl,
		"SCPCOA/Bistatic/BistaticAngRate": dbl,

		"Radiometric/NoiseLevel/NoiseLevelType": txt,
		"Radiometric/NoiseLevel/NoisePoly":      poly2d,
		"Radiometric/RCSSFPoly":                 poly2d,
		"Radiometric/SigmaZeroSFPoly":           poly2d,
		"Radiometric/BetaZeroSFPoly":            poly2d,
		"Radiometric/GammaZeroSFPoly":           poly2d,

		"ErrorStatistics/CompositeSCP/Rg":                                                     dbl,
		"ErrorStatistics/CompositeSCP/Az":                                                     dbl,
		"ErrorStatistics/CompositeSCP/RgAz":                                                   dbl,
		"ErrorStatistics/BistaticCompositeSCP/RAvg":                                           dbl,
		"ErrorStatistics/BistaticCompositeSCP/RdotAvg":                                        dbl,
		"ErrorStatistics/BistaticCompositeSCP/RAvgRdotAvg":                                    dbl,
		"ErrorStatistics/Components/PosVelErr/Frame":                                          txt,
		"ErrorStatistics/Components/PosVelErr/P1":                                             dbl,
		"ErrorStatistics/Components/PosVelErr/P2":                                             dbl,
		"ErrorStatistics/Components/PosVelErr/P3":                                             dbl,
		"ErrorStatistics/Components/PosVelErr/V1":                                             dbl,
		"ErrorStatistics/Components/PosVelErr/V2":                                             dbl,
		"ErrorStatistics/Components/PosVelErr/V3":                                             dbl,
		"ErrorStatistics/Components/RadarSensor/RangeBias":                                    dbl,
		"ErrorStatistics/Components/RadarSensor/ClockFreqSF":                                  dbl,
		"ErrorStatistics/Components/RadarSensor/TransmitFreqSF":                               dbl,
		"ErrorStatistics/Components/TropoError/TropoRangeVertical":                            dbl,
		"ErrorStatistics/Components/TropoError/TropoRangeSlant":                               dbl,
		"ErrorStatistics/Components/IonoError/IonoRangeVertical":                              dbl,
		"ErrorStatistics/Components/IonoError/IonoRangeRateVertical":                          dbl,
		"ErrorStatistics/Components/IonoError/IonoRgRgRateCC":                                 dbl,
		"ErrorStatistics/BistaticComponents/PosVelErr/TxFrame":                                txt,
		"ErrorStatistics/BistaticComponents/PosVelErr/TxPVCov":                                transcode.MatrixType{Rows: 6, Cols: 6},
		"ErrorStatistics/BistaticComponents/PosVelErr/RcvFrame":                               txt,
		"ErrorStatistics/BistaticComponents/PosVelErr/RcvPVCov":                               transcode.MatrixType{Rows: 6, Cols: 6},
		"ErrorStatistics/BistaticComponents/PosVelErr/TxRcvPVXCov":                            transcode.MatrixType{Rows: 6, Cols: 6},
		"ErrorStatistics/BistaticComponents/RadarSensor/TxRcvTimeFreq":                        transcode.MatrixType{Rows: 4, Cols: 4},
		"ErrorStatistics/BistaticComponents/AtmosphericError/TxSCP":                           dbl,
		"ErrorStatistics/BistaticComponents/AtmosphericError/RcvSCP":                          dbl,
		"ErrorStatistics/BistaticComponents/AtmosphericError/TxRcvCC":                         dbl,
		"ErrorStatistics/Unmodeled/Xrow":                                                      dbl,
		"ErrorStatistics/Unmodeled/Ycol":                                                      dbl,
		"ErrorStatistics/Unmodeled/XrowYcol":                                                  dbl,
		"ErrorStatistics/AdditionalParms/Parameter":                                           param,
		"ErrorStatistics/AdjustableParameterOffsets/ARPPosSCPCOA":                             xyz,
		"ErrorStatistics/AdjustableParameterOffsets/ARPVel":                                   xyz,
		"ErrorStatistics/AdjustableParameterOffsets/TxTimeSCPCOA":                             dbl,
		"ErrorStatistics/AdjustableParameterOffsets/RcvTimeSCPCOA":                            dbl,
		"ErrorStatistics/AdjustableParameterOffsets/APOError":                                 transcode.MatrixType{Rows: 8, Cols: 8},
		"ErrorStatistics/AdjustableParameterOffsets/CompositeSCP/Rg":                          dbl,
		"ErrorStatistics/AdjustableParameterOffsets/CompositeSCP/Az":                          dbl,
		"ErrorStatistics/AdjustableParameterOffsets/CompositeSCP/RgAz":                        dbl,
		"ErrorStatistics/BistaticAdjustableParameterOffsets/APOError":                         transcode.MatrixType{Rows: 16, Cols: 16},
		"ErrorStatistics/BistaticAdjustableParameterOffsets/BistaticCompositeSCP/RAvg":        dbl,
		"ErrorStatistics/BistaticAdjustableParameterOffsets/BistaticCompositeSCP/RdotAvg":     dbl,
		"ErrorStatistics/BistaticAdjustableParameterOffsets/BistaticCompositeSCP/RAvgRdotAvg": dbl,

		"MatchInfo/NumMatchTypes":                        integer,
		"MatchInfo/MatchType/TypeID":                     txt,
		"MatchInfo/MatchType/CurrentIndex":               integer,
		"MatchInfo/MatchType/NumMatchCollections":        integer,
		"MatchInfo/MatchType/MatchCollection/CoreName":   txt,
		"MatchInfo/MatchType/MatchCollection/MatchIndex": integer,
		"MatchInfo/MatchType/MatchCollection/Parameter":  param,

		"RgAzComp/AzSF":    dbl,
		"RgAzComp/KazPoly": poly,

		"PFA/FPN":                    xyz,
		"PFA/IPN":                    xyz,
		"PFA/PolarAngRefTime":        dbl,
		"PFA/PolarAngPoly":           poly,
		"PFA/SpatialFreqSFPoly":      poly,
		"PFA/Krg1":                   dbl,
		"PFA/Krg2":                   dbl,
		"PFA/Kaz1":                   dbl,
		"PFA/Kaz2":                   dbl,
		"PFA/STDeskew/Applied":       boolean,
		"PFA/STDeskew/STDSPhasePoly": poly2d,

		"RMA/RMAlgoType":           txt,
		"RMA/ImageType":            txt,
		"RMA/RMAT/PosRef":          xyz,
		"RMA/RMAT/VelRef":          xyz,
		"RMA/RMAT/DopConeAngRef":   dbl,
		"RMA/RMCR/PosRef":          xyz,
		"RMA/RMCR/VelRef":          xyz,
		"RMA/RMCR/DopConeAngRef":   dbl,
		"RMA/INCA/TimeCAPoly":      poly,
		"RMA/INCA/R_CA_SCP":        dbl,
		"RMA/INCA/FreqZero":        dbl,
		"RMA/INCA/DRateSFPoly":     poly2d,
		"RMA/INCA/DopCentroidPoly": poly2d,
		"RMA/INCA/DopCentroidCOA":  boolean,
	}

	// per-pair correlation coefficients of the position/velocity error
	for _, pair := range []string{
		"P1P2", "P1P3", "P1V1", "P1V2", "P1V3",
		"P2P3", "P2V1", "P2V2", "P2V3",
		"P3V1", "P3V2", "P3V3",
		"V1V2", "V1V3", "V2V3",
	} {
		table["ErrorStatistics/Components/PosVelErr/CorrCoefs/"+pair] = dbl
	}

	// decorrelation pairs: a zero-time coefficient and a rate
	for _, base := range []string{
		"ErrorStatistics/Components/PosVelErr/PositionDecorr",
		"ErrorStatistics/Components/RadarSensor/RangeBiasDecorr",
		"ErrorStatistics/Components/TropoError/TropoRangeDecorr",
		"ErrorStatistics/Components/IonoError/IonoRangeVertDecorr",
		"ErrorStatistics/BistaticComponents/RadarSensor/TxRcvTimeFreqDecorr/TxTimeDecorr",
		"ErrorStatistics/BistaticComponents/RadarSensor/TxRcvTimeFreqDecorr/TxClockFreqDecorr",
		"ErrorStatistics/BistaticComponents/RadarSensor/TxRcvTimeFreqDecorr/RcvTimeDecorr",
		"ErrorStatistics/BistaticComponents/RadarSensor/TxRcvTimeFreqDecorr/RcvClockFreqDecorr",
		"ErrorStatistics/Unmodeled/UnmodeledDecorr/Xrow",
		"ErrorStatistics/Unmodeled/UnmodeledDecorr/Ycol",
	} {
		table[base+"/CorrCoefZero"] = dbl
		table[base+"/DecorrRate"] = dbl
	}

	// row and column grid directions share one element set
	for _, d := range []string{"Row", "Col"} {
		table["Grid/"+d+"/UVectECF"] = xyz
		table["Grid/"+d+"/SS"] = dbl
		table["Grid/"+d+"/ImpRespWid"] = dbl
		table["Grid/"+d+"/Sgn"] = integer
		table["Grid/"+d+"/ImpRespBW"] = dbl
		table["Grid/"+d+"/KCtr"] = dbl
		table["Grid/"+d+"/DeltaK1"] = dbl
		table["Grid/"+d+"/DeltaK2"] = dbl
		table["Grid/"+d+"/DeltaKCOAPoly"] = poly2d
		table["Grid/"+d+"/WgtType/WindowName"] = txt
		table["Grid/"+d+"/WgtType/Parameter"] = param
		table["Grid/"+d+"/WgtFunct"] = transcode.ListType{SubTag: "Wgt", Sub: dbl, IndexStart: 1}
	}

	// bistatic collection geometry, transmit and receive platforms
	for _, p := range []string{"Tx", "Rcv"} {
		base := "SCPCOA/Bistatic/" + p + "Platform/"
		table[base+"Time"] = dbl
		table[base+"Pos"] = xyz
		table[base+"Vel"] = xyz
		table[base+"Acc"] = xyz
		table[base+"SideOfTrack"] = txt
		table[base+"SlantRange"] = dbl
		table[base+"GroundRange"] = dbl
		table[base+"DopplerConeAng"] = dbl
		table[base+"GrazeAng"] = dbl
		table[base+"IncidenceAng"] = dbl
		table[base+"AzimAng"] = dbl

		offs := "ErrorStatistics/BistaticAdjustableParameterOffsets/" + p + "Platform/"
		table[offs+"APCPosSCPCOA"] = xyz
		table[offs+"APCVel"] = xyz
		table[offs+"TimeSCPCOA"] = dbl
		table[offs+"ClockFreqSF"] = dbl
	}

	// antenna patterns for the transmit, receive, and two-way apertures
	for _, a := range []string{"Tx", "Rcv", "TwoWay"} {
		base := "Antenna/" + a + "/"
		table[base+"XAxisPoly"] = xyzPoly
		table[base+"YAxisPoly"] = xyzPoly
		table[base+"FreqZero"] = dbl
		table[base+"EB/DCXPoly"] = poly
		table[base+"EB/DCYPoly"] = poly
		table[base+"Array/GainPoly"] = poly2d
		table[base+"Array/PhasePoly"] = poly2d
		table[base+"Elem/GainPoly"] = poly2d
		table[base+"Elem/PhasePoly"] = poly2d
		table[base+"GainBSPoly"] = poly
		table[base+"EBFreqShift"] = boolean
		table[base+"MLFreqDilation"] = boolean
	}

	r := transcode.NewRegistry()
	for pattern, tc := range table {
		if err := r.Register(pattern, tc); err != nil {
			panic(err) // table is static; duplicates are a programming error
		}
	}
	r.CollapseRepeats("GeoInfo")

	return r
}

// ChildTranscoders registers the ICP corner children alongside the corners
// element itself.
func (ImageCornersType) ChildTranscoders() map[string]transcode.Transcoder {
	return map[string]transcode.Transcoder{"ICP": transcode.NewLatLonType()}
}
