// Package midistream implements the CARBON port-stream layer: a closed
// enumeration of physical/logical endpoints, a power-of-two SPSC ring
// queue per port, and a running-status byte parser with SysEx chunking.
package midistream

import "fmt"

// Port identifies a physical or logical MIDI endpoint. The enumeration is
// closed and validated at every boundary that accepts a Port value,
// grounded on spec §9's "integer-keyed static arrays -> typed IDs"
// redesign note.
type Port int

const (
	PortDINIn1 Port = iota
	PortDINIn2
	PortDINOut1
	PortDINOut2
	PortUSBDevIn1
	PortUSBDevIn2
	PortUSBDevIn3
	PortUSBDevIn4
	PortUSBDevOut1
	PortUSBDevOut2
	PortUSBDevOut3
	PortUSBHostIn
	PortUSBHostOut
	PortCVOut
	PortSysExIn
	portCount
)

// Valid reports whether p is within the closed port enumeration.
func (p Port) Valid() bool {
	return p >= 0 && p < portCount
}

func (p Port) String() string {
	names := [...]string{
		"DINIn1", "DINIn2", "DINOut1", "DINOut2",
		"USBDevIn1", "USBDevIn2", "USBDevIn3", "USBDevIn4",
		"USBDevOut1", "USBDevOut2", "USBDevOut3",
		"USBHostIn", "USBHostOut", "CVOut", "SysExIn",
	}
	if !p.Valid() {
		return fmt.Sprintf("Port(%d)", int(p))
	}
	return names[p]
}

// NumPorts is the size of the closed port enumeration.
const NumPorts = int(portCount)
