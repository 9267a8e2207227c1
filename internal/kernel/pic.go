package kernel

import "sync"

// PIC port addresses. The master and slave 8259 controllers each expose a
// command and a data port.
const (
	masterCommandPort = 0x20
	masterDataPort    = 0x21
	slaveCommandPort  = 0xA0
	slaveDataPort     = 0xA1

	picEOI = 0x20

	icw1Init     = 0x10
	icw1ICW4     = 0x01
	icw4Mode8086 = 0x01

	ocwReadISR = 0x0B
	ocwReadIRR = 0x0A
)

// PortBus abstracts byte-wide I/O port access so the PIC can be driven
// either by an in-memory simulation (the default, and the only backend
// exercisable in this hosted environment) or by a real-hardware backend
// built as thin outb/inb assembly stubs behind the same interface.
type PortBus interface {
	Out(port uint16, value uint8)
	In(port uint16) uint8
}

// simPorts is an in-memory PortBus used by tests and by any caller that
// has no real PIC to talk to. It models the register semantics the PIC
// depends on: the command port triggers the ICW sequence and OCW3 reads,
// the data port holds the interrupt mask register.
type simPorts struct {
	mu sync.Mutex

	masterMask   uint8
	slaveMask    uint8
	masterOCW3   uint8 // last OCW3 written to the master command port
	slaveOCW3    uint8
	masterIRR    uint8
	masterISR    uint8
	slaveIRR     uint8
	slaveISR     uint8
	masterEOIs   []uint8
	slaveEOIs    []uint8
	icwStepMast  int
	icwStepSlave int
}

// NewSimPorts returns a PortBus simulating two 8259s with all lines
// masked, as if freshly reset.
func NewSimPorts() *simPorts {
	return &simPorts{masterMask: 0xFF, slaveMask: 0xFF}
}

func (s *simPorts) Out(port uint16, value uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch port {
	case masterDataPort:
		if s.icwStepMast > 0 && s.icwStepMast < 4 {
			s.icwStepMast++
			return
		}

		s.masterMask = value
	case slaveDataPort:
		if s.icwStepSlave > 0 && s.icwStepSlave < 4 {
			s.icwStepSlave++
			return
		}

		s.slaveMask = value
	case masterCommandPort:
		switch {
		case value&icw1Init != 0:
			s.icwStepMast = 1
		case value == picEOI:
			s.masterEOIs = append(s.masterEOIs, value)
		case value == ocwReadISR:
			s.masterOCW3 = value
		case value == ocwReadIRR:
			s.masterOCW3 = value
		}
	case slaveCommandPort:
		switch {
		case value&icw1Init != 0:
			s.icwStepSlave = 1
		case value == picEOI:
			s.slaveEOIs = append(s.slaveEOIs, value)
		case value == ocwReadISR:
			s.slaveOCW3 = value
		case value == ocwReadIRR:
			s.slaveOCW3 = value
		}
	}
}

func (s *simPorts) In(port uint16) uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch port {
	case masterDataPort:
		return s.masterMask
	case slaveDataPort:
		return s.slaveMask
	case masterCommandPort:
		if s.masterOCW3 == ocwReadISR {
			return s.masterISR
		}

		return s.masterIRR
	case slaveCommandPort:
		if s.slaveOCW3 == ocwReadISR {
			return s.slaveISR
		}

		return s.slaveIRR
	default:
		return 0
	}
}

// SetISR and SetIRR let tests pre-seed ISR/IRR bits to read back a
// synthetic PIC state.
func (s *simPorts) SetISR(mask uint16) {
	s.mu.Lock()
	s.masterISR = uint8(mask)
	s.slaveISR = uint8(mask >> 8)
	s.mu.Unlock()
}

func (s *simPorts) SetIRR(mask uint16) {
	s.mu.Lock()
	s.masterIRR = uint8(mask)
	s.slaveIRR = uint8(mask >> 8)
	s.mu.Unlock()
}

// EOIsSent returns the EOI bytes sent to the master and slave command
// ports, in order.
func (s *simPorts) EOIsSent() (master, slave []uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]uint8(nil), s.masterEOIs...), append([]uint8(nil), s.slaveEOIs...)
}

// PIC drives a master/slave 8259 pair through a PortBus.
type PIC struct {
	mu   sync.Mutex
	bus  PortBus
	spur uint64
}

// NewPIC wraps bus (typically a *simPorts) with the 8259 programming
// sequence.
func NewPIC(bus PortBus) *PIC {
	return &PIC{bus: bus}
}

// Remap issues the ICW1..ICW4 sequence on both controllers, preserving the
// prior mask registers and routing vectors to [offset1, offset1+8) on the
// master and [offset2, offset2+8) on the slave. The master is told its
// slave lives on IRQ2 (cascade identity bit 2); the slave is told its
// cascade identity is 2.
func (p *PIC) Remap(offset1, offset2 uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()

	savedMaster := p.bus.In(masterDataPort)
	savedSlave := p.bus.In(slaveDataPort)

	p.bus.Out(masterCommandPort, icw1Init|icw1ICW4)
	p.bus.Out(slaveCommandPort, icw1Init|icw1ICW4)

	p.bus.Out(masterDataPort, offset1) // ICW2: vector offset
	p.bus.Out(slaveDataPort, offset2)

	p.bus.Out(masterDataPort, 1<<2) // ICW3: slave attached at IRQ2
	p.bus.Out(slaveDataPort, 2)     // ICW3: this PIC's cascade identity is 2

	p.bus.Out(masterDataPort, icw4Mode8086)
	p.bus.Out(slaveDataPort, icw4Mode8086)

	p.bus.Out(masterDataPort, savedMaster)
	p.bus.Out(slaveDataPort, savedSlave)
}

// irqPort/irqBit locate the mask bit for a given IRQ line (0..15): lines
// 0..7 live on the master, 8..15 route via the slave.
func irqPort(irq uint8) (cmd, data uint16) {
	if irq >= 8 {
		return slaveCommandPort, slaveDataPort
	}

	return masterCommandPort, masterDataPort
}

func irqBit(irq uint8) uint8 {
	if irq >= 8 {
		return 1 << (irq - 8)
	}

	return 1 << irq
}

// SetMask masks (disables) irq.
func (p *PIC) SetMask(irq uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, data := irqPort(irq)
	p.bus.Out(data, p.bus.In(data)|irqBit(irq))
}

// ClearMask unmasks (enables) irq.
func (p *PIC) ClearMask(irq uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, data := irqPort(irq)
	p.bus.Out(data, p.bus.In(data)&^irqBit(irq))
}

// Masked reports whether irq is currently masked.
func (p *PIC) Masked(irq uint8) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, data := irqPort(irq)
	return p.bus.In(data)&irqBit(irq) != 0
}

// SendEOI acknowledges irq. Lines 8..15 require EOI on both controllers
// (the slave first, so the cascade line clears, then the master);
// lines 0..7 only need the master acknowledged.
func (p *PIC) SendEOI(irq uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if irq >= 8 {
		p.bus.Out(slaveCommandPort, picEOI)
	}

	p.bus.Out(masterCommandPort, picEOI)
}

// GetIRR reads the combined 16-bit Interrupt Request Register via OCW3.
func (p *PIC) GetIRR() uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.bus.Out(masterCommandPort, ocwReadIRR)
	p.bus.Out(slaveCommandPort, ocwReadIRR)

	lo := p.bus.In(masterCommandPort)
	hi := p.bus.In(slaveCommandPort)

	return uint16(hi)<<8 | uint16(lo)
}

// GetISR reads the combined 16-bit In-Service Register via OCW3.
func (p *PIC) GetISR() uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.bus.Out(masterCommandPort, ocwReadISR)
	p.bus.Out(slaveCommandPort, ocwReadISR)

	lo := p.bus.In(masterCommandPort)
	hi := p.bus.In(slaveCommandPort)

	return uint16(hi)<<8 | uint16(lo)
}

// IsSpurious implements the spurious-IRQ policy for lines 7 and 15: read
// ISR first, and treat the interrupt as spurious if the line's ISR bit is
// clear. It also performs the one piece of EOI handling that is
// spurious-policy-specific: a spurious vector 15 still gets an EOI sent to
// the master only (the cascade line must be cleared even though the slave
// never actually serviced anything).
func (p *PIC) IsSpurious(irq uint8) bool {
	if irq != 7 && irq != 15 {
		return false
	}

	isr := p.GetISR()
	bit := uint16(1) << irq

	if isr&bit != 0 {
		return false
	}

	p.mu.Lock()
	p.spur++
	p.mu.Unlock()

	if irq == 15 {
		p.mu.Lock()
		p.bus.Out(masterCommandPort, picEOI)
		p.mu.Unlock()
	}

	return true
}

// SpuriousCount reports the number of spurious IRQs observed.
func (p *PIC) SpuriousCount() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.spur
}
