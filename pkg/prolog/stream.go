package prolog

import (
	"bufio"
	"io"
	"sync"
)

// StreamMode is input or output.
type StreamMode int

const (
	ModeInput StreamMode = iota
	ModeOutput
)

// StreamType is text or binary (random-access).
type StreamType int

const (
	TypeText StreamType = iota
	TypeBinary
)

// EOFState tracks the three-state end-of-stream machine (§4.11): the
// first read reaching EOF transitions not->at; the next read attempt
// transitions at->past (raising permission_error if EOFAction is
// "error", looping back to "not" if "reset").
type EOFState int

const (
	EOFNot EOFState = iota
	EOFAt
	EOFPast
)

// EOFAction selects the behavior of the at->past transition.
type EOFAction int

const (
	EOFActionError EOFAction = iota
	EOFActionEOFCode
	EOFActionReset
)

// PrologStream is the abstract stream: Text-Input, Text-Output, or
// Binary (random-access), each carrying a filename atom, mode, type,
// eof state/action, reposition flag, alias set, and an OpaqueHandle
// identity for comparison.
type PrologStream struct {
	Handle   OpaqueHandle
	Filename Atom
	Mode     StreamMode
	Type     StreamType
	Reposition bool

	mu        sync.Mutex
	eofState  EOFState
	eofAction EOFAction
	aliases   []string

	r   *bufio.Reader
	w   *bufio.Writer
	raw io.Reader
	closer io.Closer
	seeker io.Seeker
}

// NewTextInputStream wraps r as a text input stream.
func NewTextInputStream(filename string, r io.Reader) *PrologStream {
	s := &PrologStream{
		Handle:   NewOpaqueHandle("stream", filename),
		Filename: Intern(filename),
		Mode:     ModeInput,
		Type:     TypeText,
		r:        bufio.NewReader(r),
	}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// NewTextOutputStream wraps w as a text output stream.
func NewTextOutputStream(filename string, w io.Writer) *PrologStream {
	s := &PrologStream{
		Handle:   NewOpaqueHandle("stream", filename),
		Filename: Intern(filename),
		Mode:     ModeOutput,
		Type:     TypeText,
		w:        bufio.NewWriter(w),
	}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// NewBinaryStream wraps rw as a binary, seekable stream.
func NewBinaryStream(filename string, rw io.ReadWriteSeeker) *PrologStream {
	s := &PrologStream{
		Handle:     NewOpaqueHandle("stream", filename),
		Filename:   Intern(filename),
		Mode:       ModeInput,
		Type:       TypeBinary,
		Reposition: true,
		r:          bufio.NewReader(rw),
		raw:        rw,
		seeker:     rw,
	}
	if c, ok := rw.(io.Closer); ok {
		s.closer = c
	}
	return s
}

func (s *PrologStream) SetEOFAction(a EOFAction) { s.mu.Lock(); s.eofAction = a; s.mu.Unlock() }

func (s *PrologStream) EOFState() EOFState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eofState
}

// requireCapability raises permission_error when op is invoked on a
// stream lacking that capability (e.g. get_code on a binary stream, or
// put_char on an input stream).
func (s *PrologStream) requireCapability(op string, wantMode StreamMode, wantType StreamType) error {
	if s.Mode != wantMode {
		return PermissionError(op, "stream", s.Handle, "stream_mode")
	}
	if wantType != s.Type {
		return PermissionError(op, "stream", s.Handle, "stream_type")
	}
	return nil
}

// advanceEOF applies the eof-state transition for one read attempt that
// observed end-of-stream. It returns an error if the configured
// EOFAction is "error" and the transition is at->past.
func (s *PrologStream) advanceEOF() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.eofState {
	case EOFNot:
		s.eofState = EOFAt
		return nil
	case EOFAt:
		switch s.eofAction {
		case EOFActionReset:
			s.eofState = EOFNot
			return nil
		case EOFActionError:
			s.eofState = EOFPast
			return PermissionError("input", "past_end_of_stream", s.Handle, "get_char/1")
		default:
			s.eofState = EOFPast
			return nil
		}
	default: // EOFPast with eof_code action: stays past, keeps returning eof
		return nil
	}
}

// GetChar reads one rune, or io.EOF semantics translated to the
// eof-state machine.
func (s *PrologStream) GetChar() (rune, error) {
	if err := s.requireCapability("get_char", ModeInput, TypeText); err != nil {
		return 0, err
	}
	r, _, err := s.r.ReadRune()
	if err == io.EOF {
		if aerr := s.advanceEOF(); aerr != nil {
			return 0, aerr
		}
		return -1, nil
	}
	if err != nil {
		return 0, SystemError(err, "get_char/1")
	}
	return r, nil
}

// PeekChar reads one rune without consuming it.
func (s *PrologStream) PeekChar() (rune, error) {
	if err := s.requireCapability("peek_char", ModeInput, TypeText); err != nil {
		return 0, err
	}
	r, _, err := s.r.ReadRune()
	if err == io.EOF {
		return -1, nil
	}
	if err != nil {
		return 0, SystemError(err, "peek_char/1")
	}
	_ = s.r.UnreadRune()
	return r, nil
}

func (s *PrologStream) PutChar(r rune) error {
	if err := s.requireCapability("put_char", ModeOutput, TypeText); err != nil {
		return err
	}
	_, err := s.w.WriteRune(r)
	if err != nil {
		return SystemError(err, "put_char/1")
	}
	return nil
}

func (s *PrologStream) WriteString(str string) error {
	if err := s.requireCapability("put_char", ModeOutput, TypeText); err != nil {
		return err
	}
	_, err := s.w.WriteString(str)
	if err != nil {
		return SystemError(err, "write/1")
	}
	return nil
}

func (s *PrologStream) GetByte() (int, error) {
	if s.Type != TypeBinary {
		return 0, PermissionError("get_byte", "stream", s.Handle, "stream_type")
	}
	b, err := s.r.ReadByte()
	if err == io.EOF {
		if aerr := s.advanceEOF(); aerr != nil {
			return 0, aerr
		}
		return -1, nil
	}
	if err != nil {
		return 0, SystemError(err, "get_byte/1")
	}
	return int(b), nil
}

func (s *PrologStream) PutByte(b byte) error {
	if s.Type != TypeBinary || s.Mode != ModeOutput {
		return PermissionError("put_byte", "stream", s.Handle, "stream_type")
	}
	return s.w.WriteByte(b)
}

func (s *PrologStream) GetPosition() (int64, error) {
	if s.seeker == nil {
		return 0, PermissionError("get_position", "stream", s.Handle, "not_repositionable")
	}
	return s.seeker.Seek(0, io.SeekCurrent)
}

func (s *PrologStream) SetPosition(pos int64) error {
	if s.seeker == nil || !s.Reposition {
		return PermissionError("set_position", "stream", s.Handle, "not_repositionable")
	}
	_, err := s.seeker.Seek(pos, io.SeekStart)
	s.mu.Lock()
	s.eofState = EOFNot
	s.mu.Unlock()
	s.r.Reset(s.raw)
	return err
}

func (s *PrologStream) Flush() error {
	if s.w == nil {
		return nil
	}
	return s.w.Flush()
}

func (s *PrologStream) Close() error {
	_ = s.Flush()
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
