package raster

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Minimal GeoTIFF codec. Covers exactly what the pipeline produces and
// what the dataset backends deliver when asked for uncompressed output:
// single band, strip layout, no compression, uint8/uint16/float32/float64
// samples, georeferencing via ModelPixelScale + ModelTiepoint and an EPSG
// code in the GeoKey directory. Anything fancier (tiles, compression,
// multiband) is rejected with a clear error rather than misread.

// TIFF tag IDs used by the codec.
const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagPhotometric     = 262
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagSampleFormat    = 339
	tagModelPixelScale = 33550
	tagModelTiepoint   = 33922
	tagGeoKeyDirectory = 34735
	tagGDALNoData      = 42113
)

// GeoKey IDs.
const (
	geoKeyModelType    = 1024
	geoKeyRasterType   = 1025
	geoKeyGeographicCS = 2048
	geoKeyProjectedCS  = 3072
)

const (
	sampleFormatUint  = 1
	sampleFormatFloat = 3
)

// field types
const (
	typeShort  = 3
	typeLong   = 4
	typeDouble = 12
	typeASCII  = 2
)

// EncodeGeoTIFF serializes a grid as a little-endian, uncompressed,
// single-strip GeoTIFF with float32 samples.
func EncodeGeoTIFF(g *Grid) ([]byte, error) {
	if g.Width <= 0 || g.Height <= 0 || len(g.Data) != g.Width*g.Height {
		return nil, fmt.Errorf("geotiff: inconsistent grid dimensions %dx%d with %d samples", g.Width, g.Height, len(g.Data))
	}
	epsg, geographic, err := epsgCode(g.CRS)
	if err != nil {
		return nil, err
	}

	le := binary.LittleEndian

	// Pixel data: float32, one strip.
	pixels := make([]byte, 4*len(g.Data))
	for i, v := range g.Data {
		le.PutUint32(pixels[i*4:], math.Float32bits(float32(v)))
	}

	// GeoKey directory: version header + keys.
	modelType := uint16(1) // projected
	csKey := uint16(geoKeyProjectedCS)
	if geographic {
		modelType = 2
		csKey = geoKeyGeographicCS
	}
	geoKeys := []uint16{
		1, 1, 0, 3, // KeyDirectoryVersion, KeyRevision, MinorRevision, NumberOfKeys
		geoKeyModelType, 0, 1, modelType,
		geoKeyRasterType, 0, 1, 1, // PixelIsArea
		csKey, 0, 1, uint16(epsg),
	}

	var nodataASCII []byte
	if g.NoData != nil {
		nodataASCII = append([]byte(strconv.FormatFloat(*g.NoData, 'g', -1, 64)), 0)
	}

	type entry struct {
		tag, typ uint16
		count    uint32
		value    uint32 // inline value or offset, patched below
		data     []byte // out-of-line payload
	}

	pixelScale := make([]byte, 24)
	le.PutUint64(pixelScale[0:], math.Float64bits(g.PixelW))
	le.PutUint64(pixelScale[8:], math.Float64bits(g.PixelH))
	le.PutUint64(pixelScale[16:], 0)

	tiepoint := make([]byte, 48)
	// raster point (0,0,0) maps to model point (OriginX, OriginY, 0)
	le.PutUint64(tiepoint[24:], math.Float64bits(g.OriginX))
	le.PutUint64(tiepoint[32:], math.Float64bits(g.OriginY))

	geoKeyBytes := make([]byte, 2*len(geoKeys))
	for i, k := range geoKeys {
		le.PutUint16(geoKeyBytes[i*2:], k)
	}

	entries := []entry{
		{tag: tagImageWidth, typ: typeLong, count: 1, value: uint32(g.Width)},
		{tag: tagImageLength, typ: typeLong, count: 1, value: uint32(g.Height)},
		{tag: tagBitsPerSample, typ: typeShort, count: 1, value: 32},
		{tag: tagCompression, typ: typeShort, count: 1, value: 1},
		{tag: tagPhotometric, typ: typeShort, count: 1, value: 1},
		{tag: tagStripOffsets, typ: typeLong, count: 1}, // patched to pixel offset
		{tag: tagSamplesPerPixel, typ: typeShort, count: 1, value: 1},
		{tag: tagRowsPerStrip, typ: typeLong, count: 1, value: uint32(g.Height)},
		{tag: tagStripByteCounts, typ: typeLong, count: 1, value: uint32(len(pixels))},
		{tag: tagSampleFormat, typ: typeShort, count: 1, value: sampleFormatFloat},
		{tag: tagModelPixelScale, typ: typeDouble, count: 3, data: pixelScale},
		{tag: tagModelTiepoint, typ: typeDouble, count: 6, data: tiepoint},
		{tag: tagGeoKeyDirectory, typ: typeShort, count: uint32(len(geoKeys)), data: geoKeyBytes},
	}
	if nodataASCII != nil {
		entries = append(entries, entry{tag: tagGDALNoData, typ: typeASCII, count: uint32(len(nodataASCII)), data: nodataASCII})
	}

	// Layout: header(8) | IFD | out-of-line tag data | pixel strip.
	ifdSize := 2 + 12*len(entries) + 4
	offset := uint32(8 + ifdSize)
	for i := range entries {
		if entries[i].data != nil {
			entries[i].value = offset
			offset += uint32(len(entries[i].data))
		}
	}
	pixelOffset := offset
	for i := range entries {
		if entries[i].tag == tagStripOffsets {
			entries[i].value = pixelOffset
		}
	}

	var buf bytes.Buffer
	buf.WriteString("II")
	binary.Write(&buf, le, uint16(42))
	binary.Write(&buf, le, uint32(8)) // IFD immediately after header

	binary.Write(&buf, le, uint16(len(entries)))
	for _, e := range entries {
		binary.Write(&buf, le, e.tag)
		binary.Write(&buf, le, e.typ)
		binary.Write(&buf, le, e.count)
		if e.data == nil && e.typ == typeShort && e.count == 1 {
			// SHORT values sit left-justified in the 4-byte slot.
			binary.Write(&buf, le, uint16(e.value))
			binary.Write(&buf, le, uint16(0))
			continue
		}
		binary.Write(&buf, le, e.value)
	}
	binary.Write(&buf, le, uint32(0)) // no next IFD

	for _, e := range entries {
		if e.data != nil {
			buf.Write(e.data)
		}
	}
	buf.Write(pixels)

	return buf.Bytes(), nil
}

// DecodeGeoTIFF parses GeoTIFF bytes into a grid. Both byte orders are
// accepted; unsupported layouts return descriptive errors.
func DecodeGeoTIFF(data []byte) (*Grid, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("geotiff: truncated header")
	}
	var order binary.ByteOrder
	switch string(data[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("geotiff: bad byte-order mark %q", data[:2])
	}
	if order.Uint16(data[2:4]) != 42 {
		return nil, fmt.Errorf("geotiff: bad magic")
	}
	ifdOffset := order.Uint32(data[4:8])
	if int(ifdOffset)+2 > len(data) {
		return nil, fmt.Errorf("geotiff: IFD offset out of range")
	}

	n := int(order.Uint16(data[ifdOffset : ifdOffset+2]))
	if int(ifdOffset)+2+12*n+4 > len(data) {
		return nil, fmt.Errorf("geotiff: truncated IFD")
	}

	var (
		width, height   int
		bits            = 1
		compression     = 1
		samplesPerPixel = 1
		sampleFormat    = sampleFormatUint
		stripOffsets    []uint32
		stripCounts     []uint32
		rowsPerStrip    = -1
		pixelScale      []float64
		tiepoint        []float64
		geoKeys         []uint16
		nodataStr       string
	)

	readValues := func(typ uint16, count uint32, slot []byte) ([]uint32, []float64, string) {
		size := map[uint16]int{typeShort: 2, typeLong: 4, typeDouble: 8, typeASCII: 1}[typ]
		if size == 0 {
			return nil, nil, ""
		}
		total := size * int(count)
		var raw []byte
		if total <= 4 {
			raw = slot[:total]
		} else {
			off := order.Uint32(slot)
			if int(off)+total > len(data) {
				return nil, nil, ""
			}
			raw = data[off : int(off)+total]
		}
		switch typ {
		case typeShort:
			out := make([]uint32, count)
			for i := range out {
				out[i] = uint32(order.Uint16(raw[i*2:]))
			}
			return out, nil, ""
		case typeLong:
			out := make([]uint32, count)
			for i := range out {
				out[i] = order.Uint32(raw[i*4:])
			}
			return out, nil, ""
		case typeDouble:
			out := make([]float64, count)
			for i := range out {
				out[i] = math.Float64frombits(order.Uint64(raw[i*8:]))
			}
			return nil, out, ""
		case typeASCII:
			return nil, nil, strings.TrimRight(string(raw), "\x00")
		}
		return nil, nil, ""
	}

	for i := 0; i < n; i++ {
		e := data[int(ifdOffset)+2+12*i:]
		tag := order.Uint16(e[0:2])
		typ := order.Uint16(e[2:4])
		count := order.Uint32(e[4:8])
		slot := e[8:12]
		ints, floats, str := readValues(typ, count, slot)

		first := func() int {
			if len(ints) > 0 {
				return int(ints[0])
			}
			return 0
		}

		switch tag {
		case tagImageWidth:
			width = first()
		case tagImageLength:
			height = first()
		case tagBitsPerSample:
			bits = first()
		case tagCompression:
			compression = first()
		case tagSamplesPerPixel:
			samplesPerPixel = first()
		case tagSampleFormat:
			sampleFormat = first()
		case tagRowsPerStrip:
			rowsPerStrip = first()
		case tagStripOffsets:
			stripOffsets = ints
		case tagStripByteCounts:
			stripCounts = ints
		case tagModelPixelScale:
			pixelScale = floats
		case tagModelTiepoint:
			tiepoint = floats
		case tagGeoKeyDirectory:
			if len(ints) > 0 {
				geoKeys = make([]uint16, len(ints))
				for j, v := range ints {
					geoKeys[j] = uint16(v)
				}
			}
		case tagGDALNoData:
			nodataStr = str
		}
	}

	if compression != 1 {
		return nil, fmt.Errorf("geotiff: compression %d not supported (uncompressed only)", compression)
	}
	if samplesPerPixel != 1 {
		return nil, fmt.Errorf("geotiff: %d samples per pixel not supported (single band only)", samplesPerPixel)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("geotiff: missing image dimensions")
	}
	if len(stripOffsets) == 0 || len(stripOffsets) != len(stripCounts) {
		return nil, fmt.Errorf("geotiff: missing strip layout")
	}
	if len(pixelScale) < 2 || len(tiepoint) < 6 {
		return nil, fmt.Errorf("geotiff: missing georeferencing tags")
	}

	sampleSize := bits / 8
	switch {
	case sampleFormat == sampleFormatFloat && (bits == 32 || bits == 64):
	case sampleFormat == sampleFormatUint && (bits == 8 || bits == 16):
	default:
		return nil, fmt.Errorf("geotiff: sample format %d with %d bits not supported", sampleFormat, bits)
	}

	crs, err := crsFromGeoKeys(geoKeys)
	if err != nil {
		return nil, err
	}

	g := &Grid{
		CRS:     crs,
		OriginX: tiepoint[3],
		OriginY: tiepoint[4],
		PixelW:  pixelScale[0],
		PixelH:  pixelScale[1],
		Width:   width,
		Height:  height,
		Data:    make([]float64, width*height),
	}
	if nodataStr != "" {
		if nd, err := strconv.ParseFloat(strings.TrimSpace(nodataStr), 64); err == nil {
			g.NoData = &nd
		}
	}

	if rowsPerStrip <= 0 {
		rowsPerStrip = height
	}
	idx := 0
	for s := range stripOffsets {
		off := int(stripOffsets[s])
		cnt := int(stripCounts[s])
		if off+cnt > len(data) {
			return nil, fmt.Errorf("geotiff: strip %d out of range", s)
		}
		raw := data[off : off+cnt]
		for p := 0; p+sampleSize <= len(raw) && idx < len(g.Data); p += sampleSize {
			switch {
			case sampleFormat == sampleFormatFloat && bits == 32:
				g.Data[idx] = float64(math.Float32frombits(order.Uint32(raw[p:])))
			case sampleFormat == sampleFormatFloat && bits == 64:
				g.Data[idx] = math.Float64frombits(order.Uint64(raw[p:]))
			case bits == 8:
				g.Data[idx] = float64(raw[p])
			case bits == 16:
				g.Data[idx] = float64(order.Uint16(raw[p:]))
			}
			idx++
		}
	}
	if idx != len(g.Data) {
		return nil, fmt.Errorf("geotiff: expected %d samples, decoded %d", len(g.Data), idx)
	}
	return g, nil
}

func epsgCode(crs string) (code int, geographic bool, err error) {
	switch crs {
	case CRSGeographic:
		return 4326, true, nil
	case CRSWebMercator:
		return 3857, false, nil
	case CRSAlbersCONUS:
		return 5070, false, nil
	}
	return 0, false, fmt.Errorf("geotiff: no EPSG mapping for CRS %q", crs)
}

func crsFromGeoKeys(keys []uint16) (string, error) {
	// keys = 4-value header followed by 4-value entries.
	if len(keys) < 4 {
		return "", fmt.Errorf("geotiff: missing GeoKey directory")
	}
	for i := 4; i+3 < len(keys); i += 4 {
		id, loc, val := keys[i], keys[i+1], keys[i+3]
		if loc != 0 {
			continue
		}
		switch id {
		case geoKeyGeographicCS, geoKeyProjectedCS:
			crs := fmt.Sprintf("EPSG:%d", val)
			if !SupportedCRS(crs) {
				return "", fmt.Errorf("geotiff: unsupported source CRS %s", crs)
			}
			return crs, nil
		}
	}
	return "", fmt.Errorf("geotiff: no CRS GeoKey present")
}
