package tic

// LineMaxLength bounds one line payload. Longest known standard line
// (PJOURF+1 provider calendar) is near 110 bytes, anything above this
// bound is line noise on the serial link.
const LineMaxLength = 255

// Assembler extracts complete line payloads from an arbitrarily
// chunked byte stream. It carries partial state between Feed calls, so
// chunk boundaries (mid-frame, mid-line, mid-checksum) do not matter.
// Not safe for concurrent use: one Assembler per byte source.
type Assembler struct {
	line    []byte
	inFrame bool
	frames  uint32
	drops   uint32
}

func NewAssembler() *Assembler {
	return &Assembler{line: make([]byte, 0, LineMaxLength)}
}

// Feed consumes a chunk and returns the payloads of all lines
// completed by it. Bytes outside STX..ETX are discarded. ETX also
// terminates a pending line that lacks CR, EOT (frame abort by the
// meter) discards it. On overflow the current line and frame are
// dropped and scanning resumes at the next STX.
func (self *Assembler) Feed(p []byte) [][]byte {
	var out [][]byte
	for _, b := range p {
		if !self.inFrame {
			if b == STX {
				self.inFrame = true
				self.line = self.line[:0]
			}
			continue
		}
		switch b {
		case ETX:
			if len(self.line) > 0 {
				out = append(out, self.take())
			}
			self.frames++
			self.inFrame = false
		case EOT:
			if len(self.line) > 0 {
				self.drops++
				self.line = self.line[:0]
			}
			self.inFrame = false
		case LF:
			self.line = self.line[:0]
		case CR:
			if len(self.line) > 0 {
				out = append(out, self.take())
			}
		case STX: // noise, restart frame
			if len(self.line) > 0 {
				self.drops++
			}
			self.line = self.line[:0]
		default:
			if len(self.line) >= LineMaxLength {
				self.drops++
				self.line = self.line[:0]
				self.inFrame = false
				continue
			}
			self.line = append(self.line, b)
		}
	}
	return out
}

// Reset discards all carry state. Used on transport close so a
// partially buffered frame is never emitted.
func (self *Assembler) Reset() {
	self.line = self.line[:0]
	self.inFrame = false
}

// Frames counts frames closed by ETX since construction.
func (self *Assembler) Frames() uint32 { return self.frames }

// Drops counts lines/frames discarded for overflow or abort.
func (self *Assembler) Drops() uint32 { return self.drops }

func (self *Assembler) take() []byte {
	cp := make([]byte, len(self.line))
	copy(cp, self.line)
	self.line = self.line[:0]
	return cp
}
