package gdbstub

import (
	"fmt"
	"slices"
	"strings"
)

// RegisterID names one entry of the saved processor context. Special registers
// and address registers live in separate banks; zero is not a register.
type RegisterID uint16

const (
	specialBase RegisterID = 0x100
	addressBase RegisterID = 0x200

	NumSpecialRegs = 256
	NumAddressRegs = 64
)

/* Debug exception state saved by the entry code (EPC and PS at debug level 6) */
const (
	RegPC RegisterID = specialBase + 0xb6
	RegPS RegisterID = specialBase + 0xe6
)

func SpecialReg(n uint8) RegisterID {
	return specialBase + RegisterID(n)
}

func AddressReg(n uint8) RegisterID {
	if n >= NumAddressRegs {
		panic(fmt.Sprintf("address register a%d out of range", n))
	}
	return addressBase + RegisterID(n)
}

func (r RegisterID) String() string {
	switch {
	case r == RegPC:
		return "pc"
	case r == RegPS:
		return "ps"
	case r >= addressBase && r < addressBase+NumAddressRegs:
		return fmt.Sprintf("a%d", r-addressBase)
	case r >= specialBase && r < specialBase+NumSpecialRegs:
		return fmt.Sprintf("sr%d", r-specialBase)
	}
	return fmt.Sprintf("reg(%#x)", uint16(r))
}

// Registers is the processor context shared with the code that entered the
// debug exception. Writes made while handling a request are what the
// processor resumes with.
type Registers map[RegisterID]uint64

func (r Registers) Get(id RegisterID) uint64 {
	return r[id]
}

func (r Registers) Set(id RegisterID, v uint64) {
	r[id] = v
}

func (r Registers) String() string {
	ids := make([]RegisterID, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%s: %08x", id, r[id]))
	}
	return strings.Join(parts, " ")
}
