package game

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Record limits
const (
	maxRecordLine = 1 << 20
	maxSavedTanks = 64
)

// ErrBadValue marks a field that was present but out of range.
var ErrBadValue = errors.New("value out of range")

// LoadError reports a corrupt save record.
type LoadError struct {
	Line  int    // 1-based line of the offending field
	Field string // Field being read
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("corrupt save record: line %d (%s): %v", e.Line, e.Field, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Snapshot is the persistent state of a match.
type Snapshot struct {
	Terrain *Terrain
	Tanks   []*Tank
	Round   int
	Turn    int
}

// recordWriter writes one field per line and keeps the first error.
type recordWriter struct {
	w   *bufio.Writer
	err error
}

func newRecordWriter(w io.Writer) *recordWriter {
	return &recordWriter{w: bufio.NewWriter(w)}
}

func (rw *recordWriter) line(s string) {
	if rw.err != nil {
		return
	}
	if _, err := rw.w.WriteString(s); err != nil {
		rw.err = err
		return
	}
	rw.err = rw.w.WriteByte('\n')
}

func (rw *recordWriter) int(v int) { rw.line(strconv.Itoa(v)) }

func (rw *recordWriter) float(v float64) { rw.line(strconv.FormatFloat(v, 'g', -1, 64)) }

func (rw *recordWriter) bool(v bool) { rw.line(strconv.FormatBool(v)) }

func (rw *recordWriter) json(v any) {
	if rw.err != nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		rw.err = err
		return
	}
	rw.line(string(b))
}

func (rw *recordWriter) flush() error {
	if rw.err != nil {
		return rw.err
	}
	return rw.w.Flush()
}

// recordReader reads one field per line and reports failures as LoadError.
type recordReader struct {
	sc   *bufio.Scanner
	line int
}

func newRecordReader(r io.Reader) *recordReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxRecordLine)
	return &recordReader{sc: sc}
}

func (rr *recordReader) fail(field string, err error) error {
	return &LoadError{Line: rr.line, Field: field, Err: err}
}

func (rr *recordReader) next(field string) (string, error) {
	if !rr.sc.Scan() {
		rr.line++
		err := rr.sc.Err()
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return "", rr.fail(field, err)
	}
	rr.line++
	return strings.TrimRight(rr.sc.Text(), "\r"), nil
}

func (rr *recordReader) int(field string) (int, error) {
	s, err := rr.next(field)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, rr.fail(field, err)
	}
	return v, nil
}

func (rr *recordReader) float(field string) (float64, error) {
	s, err := rr.next(field)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, rr.fail(field, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, rr.fail(field, ErrBadValue)
	}
	return v, nil
}

func (rr *recordReader) bool(field string) (bool, error) {
	s, err := rr.next(field)
	if err != nil {
		return false, err
	}
	v, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false, rr.fail(field, err)
	}
	return v, nil
}

func (rr *recordReader) json(field string, v any) error {
	s, err := rr.next(field)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return rr.fail(field, err)
	}
	return nil
}

// WriteRecord writes the terrain kind and heightmap, one line each.
func (t *Terrain) WriteRecord(w io.Writer) error {
	rw := newRecordWriter(w)
	t.write(rw)
	return rw.flush()
}

func (t *Terrain) write(rw *recordWriter) {
	rw.line(t.Kind)
	rw.json(t.heights)
}

// ReadTerrain reads a record written by Terrain.WriteRecord.
func ReadTerrain(r io.Reader) (*Terrain, error) {
	return readTerrain(newRecordReader(r))
}

func readTerrain(rr *recordReader) (*Terrain, error) {
	kind, err := rr.next("terrain kind")
	if err != nil {
		return nil, err
	}
	var heights []int
	if err := rr.json("heights", &heights); err != nil {
		return nil, err
	}
	if len(heights) == 0 {
		return nil, rr.fail("heights", ErrBadValue)
	}
	for _, h := range heights {
		if h < 0 {
			return nil, rr.fail("heights", ErrBadValue)
		}
	}
	return &Terrain{Kind: kind, heights: heights}, nil
}

// WriteRecord writes the tank state, one field per line.
func (tk *Tank) WriteRecord(w io.Writer) error {
	rw := newRecordWriter(w)
	tk.write(rw)
	return rw.flush()
}

func (tk *Tank) write(rw *recordWriter) {
	rw.line(tk.Name)
	rw.json(tk.Color)
	rw.json([2]int{tk.X, tk.Y})
	rw.int(tk.Speed)
	rw.int(tk.TotalScore)
	rw.float(tk.Health)
	rw.int(tk.Fuel)
	rw.bool(tk.State != TankActive)
	rw.bool(tk.State == TankDestroyed)
	rw.line(tk.Weapon)
	rw.json(tk.Ammo)
	rw.float(tk.Power)
	rw.float(tk.Armor)
	rw.int(tk.MaxFuel)
	rw.int(tk.RoundScore)
	rw.float(tk.Angle)
	rw.json(tk.Upgrades)
	rw.bool(tk.IsBot)
}

// ReadTank reads a record written by Tank.WriteRecord. Weapon names are
// checked against armory.
func ReadTank(r io.Reader, armory *Armory) (*Tank, error) {
	return readTank(newRecordReader(r), armory)
}

func readTank(rr *recordReader, armory *Armory) (*Tank, error) {
	tk := &Tank{armory: armory}
	var err error

	if tk.Name, err = rr.next("name"); err != nil {
		return nil, err
	}
	if err = rr.json("color", &tk.Color); err != nil {
		return nil, err
	}
	var center [2]int
	if err = rr.json("center", &center); err != nil {
		return nil, err
	}
	tk.X, tk.Y = center[0], center[1]
	if tk.Speed, err = rr.int("speed"); err != nil {
		return nil, err
	}
	if tk.Speed < 0 {
		return nil, rr.fail("speed", ErrBadValue)
	}
	if tk.TotalScore, err = rr.int("total score"); err != nil {
		return nil, err
	}
	if tk.Health, err = rr.float("health"); err != nil {
		return nil, err
	}
	if tk.Health < 0 || tk.Health > MaxHealth {
		return nil, rr.fail("health", ErrBadValue)
	}
	if tk.Fuel, err = rr.int("fuel"); err != nil {
		return nil, err
	}
	if tk.Fuel < 0 {
		return nil, rr.fail("fuel", ErrBadValue)
	}
	exploding, err := rr.bool("exploding")
	if err != nil {
		return nil, err
	}
	destroyed, err := rr.bool("destroyed")
	if err != nil {
		return nil, err
	}
	switch {
	case destroyed:
		tk.State = TankDestroyed
	case exploding:
		tk.State = TankExploding
	}
	if tk.Weapon, err = rr.next("weapon"); err != nil {
		return nil, err
	}
	if _, ok := armory.Weapon(tk.Weapon); !ok {
		return nil, rr.fail("weapon", fmt.Errorf("%w: %q", ErrUnknownWeapon, tk.Weapon))
	}
	if err = rr.json("ammo", &tk.Ammo); err != nil {
		return nil, err
	}
	for name := range tk.Ammo {
		if _, ok := armory.Weapon(name); !ok {
			return nil, rr.fail("ammo", fmt.Errorf("%w: %q", ErrUnknownWeapon, name))
		}
	}
	if tk.Ammo == nil {
		tk.Ammo = map[string]int{}
	}
	if tk.Power, err = rr.float("power"); err != nil {
		return nil, err
	}
	if tk.Power < 0 || tk.Power > tk.Health {
		return nil, rr.fail("power", ErrBadValue)
	}
	if tk.Armor, err = rr.float("armor"); err != nil {
		return nil, err
	}
	if tk.Armor <= 0 {
		return nil, rr.fail("armor", ErrBadValue)
	}
	if tk.MaxFuel, err = rr.int("max fuel"); err != nil {
		return nil, err
	}
	if tk.MaxFuel < tk.Fuel {
		return nil, rr.fail("max fuel", ErrBadValue)
	}
	if tk.RoundScore, err = rr.int("round score"); err != nil {
		return nil, err
	}
	if tk.Angle, err = rr.float("angle"); err != nil {
		return nil, err
	}
	if tk.Angle < 0 || tk.Angle > math.Pi {
		return nil, rr.fail("angle", ErrBadValue)
	}
	if err = rr.json("upgrades", &tk.Upgrades); err != nil {
		return nil, err
	}
	if tk.Upgrades == nil {
		tk.Upgrades = map[string]int{}
	}
	if tk.IsBot, err = rr.bool("bot"); err != nil {
		return nil, err
	}

	tk.bind(armory)
	return tk, nil
}

// WriteRecord writes the terrain, round, turn, tank count and every tank.
func (s *Snapshot) WriteRecord(w io.Writer) error {
	rw := newRecordWriter(w)
	s.Terrain.write(rw)
	rw.int(s.Round)
	rw.int(s.Turn)
	rw.int(len(s.Tanks))
	for _, tk := range s.Tanks {
		tk.write(rw)
	}
	return rw.flush()
}

// ReadSnapshot reads a record written by Snapshot.WriteRecord. Nothing is
// returned unless the whole record is valid.
func ReadSnapshot(r io.Reader, armory *Armory) (*Snapshot, error) {
	rr := newRecordReader(r)
	terrain, err := readTerrain(rr)
	if err != nil {
		return nil, err
	}
	s := &Snapshot{Terrain: terrain}
	if s.Round, err = rr.int("round"); err != nil {
		return nil, err
	}
	if s.Round < 0 {
		return nil, rr.fail("round", ErrBadValue)
	}
	if s.Turn, err = rr.int("turn"); err != nil {
		return nil, err
	}
	n, err := rr.int("tank count")
	if err != nil {
		return nil, err
	}
	if n < 0 || n > maxSavedTanks {
		return nil, rr.fail("tank count", ErrBadValue)
	}
	if n > 0 && (s.Turn < 0 || s.Turn >= n) {
		return nil, rr.fail("turn", ErrBadValue)
	}
	for i := 0; i < n; i++ {
		tk, err := readTank(rr, armory)
		if err != nil {
			return nil, err
		}
		tk.ID = i
		s.Tanks = append(s.Tanks, tk)
	}
	return s, nil
}
