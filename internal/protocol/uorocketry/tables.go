package uorocketry

import (
	"fmt"

	"github.com/danmuck/uorlink/internal/protocol/schema"
)

// Message ids.
const (
	MsgIDTestUOR         uint32 = 60000
	MsgIDThermocoupleUOR uint32 = 60001
	MsgIDPressureUOR     uint32 = 60002
	MsgIDStrainUOR       uint32 = 60003
)

// Payload lengths and CRC-extra bytes. These are the interoperability
// contract; the tables below must reproduce them.
const (
	TestUORLen    = 1
	TestUORMinLen = 1
	TestUORCRC    = 57

	ThermocoupleUORLen    = 38
	ThermocoupleUORMinLen = 38
	ThermocoupleUORCRC    = 223

	PressureUORLen    = 38
	PressureUORMinLen = 38
	PressureUORCRC    = 194

	StrainUORLen    = 38
	StrainUORMinLen = 38
	StrainUORCRC    = 166
)

// ChannelsPerPage is the number of sensor readings carried by one paged
// message.
const ChannelsPerPage = 8

var TestUORInfo = schema.Message{
	ID:   MsgIDTestUOR,
	Name: "TEST_UOR",
	Fields: []schema.Field{
		{Name: "TEST", Type: schema.Uint8, Description: "Test field for the uor mavlink dialect"},
	},
}

var (
	ThermocoupleUORInfo = sensorPageInfo(MsgIDThermocoupleUOR, "THERMOCOUPLE_UOR", "TC", "thermocouple", "thermocouples")
	PressureUORInfo     = sensorPageInfo(MsgIDPressureUOR, "PRESSURE_UOR", "PS", "pressure sensor", "pressure sensors")
	StrainUORInfo       = sensorPageInfo(MsgIDStrainUOR, "STRAIN_UOR", "SG", "strain gauge", "strain gauges")
)

// sensorPageInfo builds the shared paged layout: eight u32 readings, the
// paging pair, then the boot timestamp (declaration order).
func sensorPageInfo(id uint32, name, prefix, sensor, plural string) schema.Message {
	fields := make([]schema.Field, 0, ChannelsPerPage+3)
	for i := 1; i <= ChannelsPerPage; i++ {
		fields = append(fields, schema.Field{
			Name:        fmt.Sprintf("%s_%d", prefix, i),
			Type:        schema.Uint32,
			Description: fmt.Sprintf("Value for %s %d", sensor, i),
		})
	}
	fields = append(fields,
		schema.Field{
			Name:        "PAGE_NUM",
			Type:        schema.Uint8,
			Description: fmt.Sprintf("Page number for %s data. Set to 0 if less than 8 %s are having their data transmitted", sensor, plural),
		},
		schema.Field{
			Name:        "PAGE_TOTAL",
			Type:        schema.Uint8,
			Description: fmt.Sprintf("Total number of pages for %s data. Set to 0 if less than 8 %s are having their data transmitted", sensor, plural),
		},
		schema.Field{
			Name:        "time_boot_ms",
			Type:        schema.Uint32,
			Units:       "ms",
			Description: "Timestamp since boot",
		},
	)
	return schema.Message{ID: id, Name: name, Fields: fields}
}

type entry struct {
	info   schema.Message
	len    int
	minLen int
	crc    byte
	new    func() Message
}

var entries = map[uint32]entry{
	MsgIDTestUOR: {
		info: TestUORInfo, len: TestUORLen, minLen: TestUORMinLen, crc: TestUORCRC,
		new: func() Message { return new(TestUOR) },
	},
	MsgIDThermocoupleUOR: {
		info: ThermocoupleUORInfo, len: ThermocoupleUORLen, minLen: ThermocoupleUORMinLen, crc: ThermocoupleUORCRC,
		new: func() Message { return new(ThermocoupleUOR) },
	},
	MsgIDPressureUOR: {
		info: PressureUORInfo, len: PressureUORLen, minLen: PressureUORMinLen, crc: PressureUORCRC,
		new: func() Message { return new(PressureUOR) },
	},
	MsgIDStrainUOR: {
		info: StrainUORInfo, len: StrainUORLen, minLen: StrainUORMinLen, crc: StrainUORCRC,
		new: func() Message { return new(StrainUOR) },
	},
}

var dialect = mustDialect()

func mustDialect() *schema.Registry {
	msgs := make([]schema.Message, 0, len(entries))
	for _, e := range entries {
		if err := checkEntry(e); err != nil {
			panic(err)
		}
		msgs = append(msgs, e.info)
	}
	r, err := schema.NewRegistry(msgs...)
	if err != nil {
		panic(err)
	}
	return r
}

// checkEntry verifies a table against its declared length, minimum length
// and CRC-extra byte.
func checkEntry(e entry) error {
	if err := e.info.Validate(e.len, e.crc); err != nil {
		return err
	}
	if l := e.info.Layout(); l.MinLen != e.minLen {
		return fmt.Errorf("uorocketry: %s min length %d, declared %d", e.info.Name, l.MinLen, e.minLen)
	}
	return nil
}

// Dialect returns the registry of every uorocketry message table. It
// satisfies frame.CRCLookup.
func Dialect() *schema.Registry { return dialect }

// MessageInfoByID returns the table for a dialect message id.
func MessageInfoByID(id uint32) (schema.Message, bool) {
	return dialect.ByID(id)
}

// MessageInfoByName returns the table for a dialect message name.
func MessageInfoByName(name string) (schema.Message, bool) {
	return dialect.ByName(name)
}
