package canopen

import "fmt"

// AbortCode is the 32-bit SDO abort code carried in an abort frame's bytes
// 4..7, little-endian.
type AbortCode uint32

// Well-known abort codes. Values and explanations are taken verbatim from
// the reference tool's abort table so operators see the same text they
// already know.
const (
	AbortToggleBit         AbortCode = 0x05030000
	AbortTimeout           AbortCode = 0x05040000
	AbortInvalidCommand    AbortCode = 0x05040001
	AbortInvalidBlockSize  AbortCode = 0x05040002
	AbortInvalidSeqNum     AbortCode = 0x05040003
	AbortCRC               AbortCode = 0x05040004
	AbortOutOfMemory       AbortCode = 0x05040005
	AbortUnsupportedAccess AbortCode = 0x06010000
	AbortWriteOnly         AbortCode = 0x06010001
	AbortReadOnly          AbortCode = 0x06010002
	AbortObjectMissing     AbortCode = 0x06020000
	AbortNoMap             AbortCode = 0x06040041
	AbortMapLen            AbortCode = 0x06040042
	AbortParamIncompatible AbortCode = 0x06040043
	AbortDeviceIncompat    AbortCode = 0x06040047
	AbortHardware          AbortCode = 0x06060000
	AbortTypeMismatch      AbortCode = 0x06070010
	AbortDataLong          AbortCode = 0x06070012
	AbortDataShort         AbortCode = 0x06070013
	AbortSubindexMissing   AbortCode = 0x06090011
	AbortInvalidValue      AbortCode = 0x06090030
	AbortValueHigh         AbortCode = 0x06090031
	AbortValueLow          AbortCode = 0x06090032
	AbortMaxLessMin        AbortCode = 0x06090036
	AbortNoResource        AbortCode = 0x060A0023
	AbortGeneral           AbortCode = 0x08000000
	AbortDataTransfer      AbortCode = 0x08000020
	AbortDataLocalControl  AbortCode = 0x08000021
	AbortDataDeviceState   AbortCode = 0x08000022
	AbortDataOD            AbortCode = 0x08000023
	AbortNoData            AbortCode = 0x08000024
)

var abortExplanations = map[AbortCode]string{
	AbortToggleBit:         "Toggle bit not alternated.",
	AbortTimeout:           "SDO protocol timed out.",
	AbortInvalidCommand:    "Client/server command specifier not valid or unknown.",
	AbortInvalidBlockSize:  "Invalid block size (block mode only).",
	AbortInvalidSeqNum:     "Invalid sequence number (block mode only).",
	AbortCRC:               "CRC error (block mode only).",
	AbortOutOfMemory:       "Out of memory.",
	AbortUnsupportedAccess: "Unsupported access to an object.",
	AbortWriteOnly:         "Attempt to read a write only object.",
	AbortReadOnly:          "Attempt to write a read only object.",
	AbortObjectMissing:     "Object does not exist in the object dictionary.",
	AbortNoMap:             "Object cannot be mapped to the PDO.",
	AbortMapLen:            "The number and length of the objects to be mapped would exceed PDO length.",
	AbortParamIncompatible: "General parameter incompatibility reason.",
	AbortDeviceIncompat:    "General internal incompatibility in the device.",
	AbortHardware:          "Access failed due to an hardware error.",
	AbortTypeMismatch:      "Data type does not match, length of service parameter does not match",
	AbortDataLong:          "Data type does not match, length of service parameter too high",
	AbortDataShort:         "Data type does not match, length of service parameter too low",
	AbortSubindexMissing:   "Sub-index does not exist.",
	AbortInvalidValue:      "Invalid value for parameter (download only).",
	AbortValueHigh:         "Value of parameter written too high (download only).",
	AbortValueLow:          "Value of parameter written too low (download only).",
	AbortMaxLessMin:        "Maximum value is less than minimum value.",
	AbortNoResource:        "Resource not available: SDO connection",
	AbortGeneral:           "General error",
	AbortDataTransfer:      "Data cannot be transferred or stored to the application.",
	AbortDataLocalControl:  "Data cannot be transferred or stored to the application because of local control.",
	AbortDataDeviceState:   "Data cannot be transferred or stored to the application because of the present device state.",
	AbortDataOD:            "Object dictionary dynamic generation fails or no object dictionary is present (e.g. object dictionary is generated from file and generation fails because of an file error).",
	AbortNoData:            "No data available",
}

// Explanation returns the operator-facing string for code, or "Unknown"
// for any code not in the table.
func (code AbortCode) Explanation() string {
	if text, ok := abortExplanations[code]; ok {
		return text
	}
	return "Unknown"
}

func (code AbortCode) Error() string {
	return fmt.Sprintf("0x%08X (%s)", uint32(code), code.Explanation())
}
