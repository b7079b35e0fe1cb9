package cphd

import (
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/sario/dtype"
	"github.com/arloliu/sario/errs"
)

func TestPVPTypeRoundTrip(t *testing.T) {
	format, err := dtype.Parse("X=F8;Y=F8;Z=F8;")
	require.NoError(t, err)
	field := PVP{Offset: 1, Size: 3, Format: format}

	doc := etree.NewDocument()
	elem := doc.CreateElement("TxPos")
	require.NoError(t, PVPType{}.EncodeElem(elem, field))
	require.Equal(t, "1", elem.SelectElement("Offset").Text())
	require.Equal(t, "X=F8;Y=F8;Z=F8;", elem.SelectElement("Format").Text())

	v, err := PVPType{}.DecodeElem(elem)
	require.NoError(t, err)
	require.Equal(t, field, v)
}

func TestPVPTypeAddedField(t *testing.T) {
	field := PVP{Name: "CustomGain", Offset: 4, Size: 1, Format: dtype.F8}

	doc := etree.NewDocument()
	elem := doc.CreateElement("AddedPVP")
	tc := PVPType{Added: true}
	require.NoError(t, tc.EncodeElem(elem, field))

	// Name leads the child sequence
	children := elem.ChildElements()
	require.Equal(t, "Name", children[0].Tag)

	v, err := tc.DecodeElem(elem)
	require.NoError(t, err)
	require.Equal(t, field, v)
}

func TestPVPTypeMissingChildren(t *testing.T) {
	doc := etree.NewDocument()
	elem := doc.CreateElement("TxTime")
	elem.CreateElement("Offset").SetText("0")
	elem.CreateElement("Size").SetText("1")

	_, err := PVPType{}.DecodeElem(elem)
	require.ErrorContains(t, err, "missing Format")

	elem.CreateElement("Format").SetText("F8")
	_, err = PVPType{Added: true}.DecodeElem(elem)
	require.ErrorContains(t, err, "missing Name")
}

func TestImageAreaCornerPointsRoundTrip(t *testing.T) {
	corners := [4][2]float64{
		{38.88, -77.03}, {38.88, -77.01}, {38.86, -77.01}, {38.86, -77.03},
	}

	doc := etree.NewDocument()
	elem := doc.CreateElement("ImageAreaCornerPoints")
	tc := ImageAreaCornerPointsType{}
	require.NoError(t, tc.EncodeElem(elem, corners))

	children := elem.ChildElements()
	require.Len(t, children, 4)
	for i, c := range children {
		require.Equal(t, "IACP", c.Tag)
		require.Equal(t, string(rune('1'+i)), c.SelectAttrValue("index", ""))
	}

	v, err := tc.DecodeElem(elem)
	require.NoError(t, err)
	require.Equal(t, corners, v)
}

func TestImageAreaCornerPointsRejectsWrongCount(t *testing.T) {
	doc := etree.NewDocument()
	elem := doc.CreateElement("ImageAreaCornerPoints")
	for i := 0; i < 3; i++ {
		iacp := elem.CreateElement("IACP")
		iacp.CreateAttr("index", string(rune('1'+i)))
		iacp.CreateElement("Lat").SetText("1.0")
		iacp.CreateElement("Lon").SetText("2.0")
	}

	_, err := ImageAreaCornerPointsType{}.DecodeElem(elem)
	require.ErrorContains(t, err, "4 corner points")
}

func TestMetadataLoadSet(t *testing.T) {
	meta := testMetadata(t, singleChannelProduct(3, 4))

	v, err := meta.Load("CollectionID/CoreName")
	require.NoError(t, err)
	require.Equal(t, "EXAMPLE_CORE", v)

	v, err = meta.Load("Global/SGN")
	require.NoError(t, err)
	require.Equal(t, int64(-1), v)

	v, err = meta.Load("Global/Timeline/CollectionStart")
	require.NoError(t, err)
	start, ok := v.(time.Time)
	require.True(t, ok)
	require.True(t, start.Equal(time.Date(2023, 10, 26, 9, 30, 15, 0, time.UTC)))

	// Set creates missing branches in the document's namespace
	corners := [4][2]float64{
		{38.88, -77.03}, {38.88, -77.01}, {38.86, -77.01}, {38.86, -77.03},
	}
	require.NoError(t, meta.Set("SceneCoordinates/ImageAreaCornerPoints", corners))
	got, err := meta.Load("SceneCoordinates/ImageAreaCornerPoints")
	require.NoError(t, err)
	require.Equal(t, corners, got)

	require.NoError(t, meta.Set("ReferenceGeometry/Monostatic/ARPPos", [3]float64{1, 2, 3}))
	pos, err := meta.Load("ReferenceGeometry/Monostatic/ARPPos")
	require.NoError(t, err)
	require.Equal(t, [3]float64{1, 2, 3}, pos)

	// branch elements are navigable but carry no value
	_, err = meta.Load("Data")
	require.ErrorIs(t, err, errs.ErrNotTranscodable)
}

func TestRegistryCoversCoreBranches(t *testing.T) {
	reg := NewRegistry()

	for _, path := range []string{
		"Data/Channel/NumVectors",
		"PVP/TxPos",
		"PVP/AddedPVP",
		"SceneCoordinates/ImageAreaCornerPoints",
		"SceneCoordinates/ImageArea/Polygon",
		"ReferenceGeometry/Bistatic/TxPlatform/Pos",
		"ErrorParameters/Monostatic/PosVelErr/CorrCoefs/P1V2",
		"ErrorParameters/Bistatic/RcvPlatform/PosVelErr/Frame",
		"Dwell/CODTime/CODTimePoly",
		"Antenna/AntCoordFrame/XAxisPoly",
		"TxRcv/RcvParameters/SampleRate",
		"Channel/Parameters/Polarization/TxPol",
		"SupportArray/AddedSupportArray/ElementFormat",
		"MatchInfo/MatchType/MatchCollection/CoreName",
	} {
		require.Truef(t, reg.Transcodable(path), "path %s not registered", path)
	}

	// GeoInfo nests arbitrarily deep
	require.True(t, reg.Transcodable("GeoInfo/Polygon"))
	require.True(t, reg.Transcodable("GeoInfo/GeoInfo/GeoInfo/Point"))

	require.False(t, reg.Transcodable("NoSuch/Element"))
}
