// Package bigint implements fixed-bit-width two's-complement integer
// arithmetic for IR constants: the word type backing every IntegerValue
// and every width-sensitive typing rule in the term model.
package bigint

import (
	"math/bits"

	"github.com/pkg/errors"
)

// ErrBadWidth is returned when a binary operation is attempted between
// integers of different bit widths, or on a zero-width integer.
var ErrBadWidth = errors.New("bad-width: operand bit widths do not match")

// ErrDivideByZero is returned by division and modulus when the divisor is
// zero.
var ErrDivideByZero = errors.New("divide-by-zero: integer division by zero")

// wordBits is the number of bits in one storage word.
const wordBits = 64

// Int is a fixed-bit-width two's-complement integer. The zero value is a
// zero-bit integer and is not usable until Resize or one of the
// constructors is called on it.
type Int struct {
	bits  uint
	words []uint64 // little-endian
}

// New returns an Int of the given bit width, initialized to
// the unsigned value v (truncated to width).
func New(width uint, v uint64) Int {
	var b Int
	b.Resize(width, false)
	b.AssignUnsigned(v)
	return b
}

// NewSigned returns an Int of the given bit width initialized from a signed
// native value.
func NewSigned(width uint, v int64) Int {
	var b Int
	b.Resize(width, false)
	b.AssignSigned(v)
	return b
}

func wordsForBits(width uint) int {
	return int((width + wordBits - 1) / wordBits)
}

// Bits returns the declared bit width of this integer.
func (b *Int) Bits() uint { return b.bits }

// mask returns the bitmask applied to the most significant word.
func (b *Int) mask() uint64 {
	if b.bits == 0 {
		return 0
	}
	top := uint(len(b.words))*wordBits - b.bits
	if top == 0 {
		return ^uint64(0)
	}
	return ^uint64(0) >> top
}

func (b *Int) normalize() {
	if len(b.words) == 0 {
		return
	}
	b.words[len(b.words)-1] &= b.mask()
}

// Resize changes the bit width of this integer in place. When growing, the
// new high bits are zero-extended unless signExtend is set, in which case
// they replicate the sign bit of the original value.
func (b *Int) Resize(width uint, signExtend bool) {
	if width == 0 {
		b.bits = 0
		b.words = nil
		return
	}

	oldBits := b.bits
	newWordCount := wordsForBits(width)
	var signFill uint64
	if signExtend && oldBits > 0 && b.SignBit() {
		signFill = ^uint64(0)
	}

	newWords := make([]uint64, newWordCount)
	for i := range newWords {
		if i < len(b.words) {
			newWords[i] = b.words[i]
		} else {
			newWords[i] = signFill
		}
	}
	if signFill != 0 && width > oldBits && oldBits%wordBits != 0 {
		newWords[(oldBits-1)/wordBits] |= ^uint64(0) << (oldBits % wordBits)
	}
	b.words = newWords
	b.bits = width
	b.normalize()
}

// AssignUnsigned sets this integer (which must already have a declared
// width) to the truncation of v.
func (b *Int) AssignUnsigned(v uint64) {
	if len(b.words) == 0 {
		return
	}
	b.words[0] = v
	for i := 1; i < len(b.words); i++ {
		b.words[i] = 0
	}
	b.normalize()
}

// AssignSigned sets this integer to the truncation of the signed value v.
func (b *Int) AssignSigned(v int64) {
	if v >= 0 {
		b.AssignUnsigned(uint64(v))
		return
	}
	b.AssignUnsigned(uint64(v))
	for i := 1; i < len(b.words); i++ {
		b.words[i] = ^uint64(0)
	}
	b.normalize()
}

// Parse interprets value as a magnitude written in the given base (2..35),
// optionally negating the result. It does not accept a leading sign or
// base prefix; callers strip those first.
func (b *Int) Parse(value string, negative bool, base uint) error {
	if base < 2 || base > 35 {
		return errors.New("user: numerical base must be between 2 and 35 inclusive")
	}
	if len(b.words) == 0 {
		return errors.New("internal: cannot parse into a zero-width integer")
	}
	for i := range b.words {
		b.words[i] = 0
	}

	for i := 0; i < len(value); i++ {
		if i > 0 {
			var carry uint64
			for w := range b.words {
				hi, lo := bits.Mul64(b.words[w], uint64(base))
				lo2, c := bits.Add64(lo, carry, 0)
				b.words[w] = lo2
				carry = hi + c
			}
		}

		digit := value[i]
		var dv uint64
		switch {
		case digit >= '0' && digit <= '9':
			dv = uint64(digit - '0')
		case digit >= 'a' && digit <= 'z':
			dv = uint64(digit-'a') + 10
		case digit >= 'A' && digit <= 'Z':
			dv = uint64(digit-'A') + 10
		default:
			return errors.Errorf("user: unrecognised digit %q in parsing", digit)
		}
		if dv >= uint64(base) {
			return errors.Errorf("user: digit %q out of range for base %d", digit, base)
		}

		carry := dv
		for w := range b.words {
			sum, c := bits.Add64(b.words[w], carry, 0)
			b.words[w] = sum
			carry = c
			if carry == 0 {
				break
			}
		}
	}

	b.normalize()
	if negative {
		b.Negate(b.Clone())
	}
	return nil
}

// Clone returns an independent copy of this integer.
func (b *Int) Clone() Int {
	out := Int{bits: b.bits, words: make([]uint64, len(b.words))}
	copy(out.words, b.words)
	return out
}

// SignBit reports whether the sign bit (the most significant declared bit)
// is set.
func (b *Int) SignBit() bool {
	if b.bits == 0 {
		return false
	}
	wordIdx := (b.bits - 1) / wordBits
	bitIdx := (b.bits - 1) % wordBits
	return b.words[wordIdx]&(uint64(1)<<bitIdx) != 0
}

// Zero reports whether the value is zero.
func (b *Int) Zero() bool {
	for _, w := range b.words {
		if w != 0 {
			return false
		}
	}
	return true
}

// IsMax reports whether this is the maximum representable value, signed or
// unsigned per forSigned.
func (b *Int) IsMax(forSigned bool) bool {
	if b.bits == 0 {
		return false
	}
	if !forSigned {
		full := b.Clone()
		for i := range full.words {
			full.words[i] = ^uint64(0)
		}
		full.normalize()
		return b.cmpWords(&full) == 0
	}
	max := signedMax(b.bits)
	return b.cmpWords(&max) == 0
}

// IsMin reports whether this is the minimum representable value, signed or
// unsigned per forSigned.
func (b *Int) IsMin(forSigned bool) bool {
	if b.bits == 0 {
		return false
	}
	if !forSigned {
		return b.Zero()
	}
	min := signedMin(b.bits)
	return b.cmpWords(&min) == 0
}

func signedMax(width uint) Int {
	var b Int
	b.Resize(width, false)
	for i := range b.words {
		b.words[i] = ^uint64(0)
	}
	b.normalize()
	// clear the sign bit
	wordIdx := (width - 1) / wordBits
	bitIdx := (width - 1) % wordBits
	b.words[wordIdx] &^= uint64(1) << bitIdx
	return b
}

func signedMin(width uint) Int {
	var b Int
	b.Resize(width, false)
	wordIdx := (width - 1) / wordBits
	bitIdx := (width - 1) % wordBits
	b.words[wordIdx] |= uint64(1) << bitIdx
	b.normalize()
	return b
}

func (b *Int) cmpWords(o *Int) int {
	for i := len(b.words) - 1; i >= 0; i-- {
		if b.words[i] != o.words[i] {
			if b.words[i] < o.words[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

func checkBinary(a, b *Int) error {
	if a.bits != b.bits {
		return ErrBadWidth
	}
	if a.bits == 0 {
		return ErrBadWidth
	}
	return nil
}

// Add sets this integer to a+b, wrapping modulo 2^width.
func (r *Int) Add(a, b Int) error {
	if err := checkBinary(&a, &b); err != nil {
		return err
	}
	r.Resize(a.bits, false)
	var carry uint64
	for i := range r.words {
		sum, c1 := bits.Add64(a.words[i], b.words[i], carry)
		r.words[i] = sum
		carry = c1
	}
	r.normalize()
	return nil
}

// Subtract sets this integer to a-b, wrapping modulo 2^width.
func (r *Int) Subtract(a, b Int) error {
	if err := checkBinary(&a, &b); err != nil {
		return err
	}
	r.Resize(a.bits, false)
	var borrow uint64
	for i := range r.words {
		diff, b1 := bits.Sub64(a.words[i], b.words[i], borrow)
		r.words[i] = diff
		borrow = b1
	}
	r.normalize()
	return nil
}

// Multiply sets this integer to a*b, wrapping modulo 2^width.
func (r *Int) Multiply(a, b Int) error {
	if err := checkBinary(&a, &b); err != nil {
		return err
	}
	n := len(a.words)
	acc := make([]uint64, n)
	for i := 0; i < n; i++ {
		if a.words[i] == 0 {
			continue
		}
		var carry uint64
		for j := 0; j+i < n; j++ {
			hi, lo := bits.Mul64(a.words[i], b.words[j])
			sum1, c1 := bits.Add64(acc[i+j], lo, 0)
			sum2, c2 := bits.Add64(sum1, carry, 0)
			acc[i+j] = sum2
			carry = hi + c1 + c2
		}
	}
	r.Resize(a.bits, false)
	copy(r.words, acc)
	r.normalize()
	return nil
}

// DivideUnsigned sets this integer to the unsigned quotient of a/b.
func (r *Int) DivideUnsigned(a, b Int) error {
	if err := checkBinary(&a, &b); err != nil {
		return err
	}
	if b.Zero() {
		return ErrDivideByZero
	}
	q, _ := udivmod(a, b)
	*r = q
	return nil
}

// ModuloUnsigned sets this integer to the unsigned remainder of a/b.
func (r *Int) ModuloUnsigned(a, b Int) error {
	if err := checkBinary(&a, &b); err != nil {
		return err
	}
	if b.Zero() {
		return ErrDivideByZero
	}
	_, rem := udivmod(a, b)
	*r = rem
	return nil
}

// DivideSigned sets this integer to the signed (truncating) quotient of
// a/b.
func (r *Int) DivideSigned(a, b Int) error {
	if err := checkBinary(&a, &b); err != nil {
		return err
	}
	if b.Zero() {
		return ErrDivideByZero
	}
	width := a.bits
	negA, negB := a.SignBit(), b.SignBit()
	ua, ub := a.Clone(), b.Clone()
	if negA {
		ua.Negate(ua.Clone())
	}
	if negB {
		ub.Negate(ub.Clone())
	}
	q, _ := udivmod(ua, ub)
	if negA != negB {
		q.Negate(q.Clone())
	}
	r.Resize(width, false)
	*r = q
	return nil
}

// udivmod performs unsigned long division via repeated shift-subtract. It
// is O(width^2) but simple and correct for the widths the IR uses (<=128
// plus pointer width).
func udivmod(a, b Int) (q, rem Int) {
	width := a.bits
	q = New(width, 0)
	rem = New(width, 0)
	for i := int(width) - 1; i >= 0; i-- {
		rem.shlOne()
		if a.bitAt(uint(i)) {
			rem.setBit(0)
		}
		if rem.cmpWords(&b) >= 0 {
			var borrow uint64
			for w := range rem.words {
				diff, b1 := bits.Sub64(rem.words[w], b.words[w], borrow)
				rem.words[w] = diff
				borrow = b1
			}
			q.setBit(uint(i))
		}
	}
	rem.normalize()
	q.normalize()
	return q, rem
}

func (b *Int) bitAt(i uint) bool {
	return b.words[i/wordBits]&(uint64(1)<<(i%wordBits)) != 0
}

func (b *Int) setBit(i uint) {
	b.words[i/wordBits] |= uint64(1) << (i % wordBits)
}

func (b *Int) shlOne() {
	var carry uint64
	for i := range b.words {
		nc := b.words[i] >> 63
		b.words[i] = (b.words[i] << 1) | carry
		carry = nc
	}
	b.normalize()
}

// Negate sets this integer to the two's-complement negation of a.
func (r *Int) Negate(a Int) {
	r.Resize(a.bits, false)
	if a.bits == 0 {
		return
	}
	for i := range r.words {
		r.words[i] = ^a.words[i]
	}
	var carry uint64 = 1
	for i := range r.words {
		sum, c := bits.Add64(r.words[i], carry, 0)
		r.words[i] = sum
		carry = c
	}
	r.normalize()
}

// BitAnd, BitOr, BitXor, BitNot: bitwise operations, masked to width on
// every write.

func (r *Int) BitAnd(a, b Int) error {
	if err := checkBinary(&a, &b); err != nil {
		return err
	}
	r.Resize(a.bits, false)
	for i := range r.words {
		r.words[i] = a.words[i] & b.words[i]
	}
	r.normalize()
	return nil
}

func (r *Int) BitOr(a, b Int) error {
	if err := checkBinary(&a, &b); err != nil {
		return err
	}
	r.Resize(a.bits, false)
	for i := range r.words {
		r.words[i] = a.words[i] | b.words[i]
	}
	r.normalize()
	return nil
}

func (r *Int) BitXor(a, b Int) error {
	if err := checkBinary(&a, &b); err != nil {
		return err
	}
	r.Resize(a.bits, false)
	for i := range r.words {
		r.words[i] = a.words[i] ^ b.words[i]
	}
	r.normalize()
	return nil
}

func (r *Int) BitNot(a Int) {
	r.Resize(a.bits, false)
	for i := range r.words {
		r.words[i] = ^a.words[i]
	}
	r.normalize()
}

// Shl sets this integer to a shifted left by n bits (zero-filled).
func (r *Int) Shl(a Int, n uint) {
	r.Resize(a.bits, false)
	if a.bits == 0 {
		return
	}
	wordShift := n / wordBits
	bitShift := n % wordBits
	nw := len(r.words)
	for i := nw - 1; i >= 0; i-- {
		var v uint64
		srcIdx := i - int(wordShift)
		if srcIdx >= 0 && srcIdx < len(a.words) {
			v = a.words[srcIdx] << bitShift
			if bitShift > 0 && srcIdx-1 >= 0 {
				v |= a.words[srcIdx-1] >> (wordBits - bitShift)
			}
		}
		r.words[i] = v
	}
	r.normalize()
}

// Lshr sets this integer to a logically shifted right by n bits
// (zero-filled).
func (r *Int) Lshr(a Int, n uint) {
	r.Resize(a.bits, false)
	if a.bits == 0 {
		return
	}
	wordShift := n / wordBits
	bitShift := n % wordBits
	nw := len(r.words)
	for i := 0; i < nw; i++ {
		var v uint64
		srcIdx := i + int(wordShift)
		if srcIdx < len(a.words) {
			v = a.words[srcIdx] >> bitShift
			if bitShift > 0 && srcIdx+1 < len(a.words) {
				v |= a.words[srcIdx+1] << (wordBits - bitShift)
			}
		}
		r.words[i] = v
	}
	r.normalize()
}

// Ashr sets this integer to a arithmetically shifted right by n bits
// (sign-filled).
func (r *Int) Ashr(a Int, n uint) {
	r.Lshr(a, n)
	if !a.SignBit() {
		return
	}
	if n >= a.bits {
		for i := range r.words {
			r.words[i] = ^uint64(0)
		}
		r.normalize()
		return
	}
	// set the top n bits (relative to declared width) to 1.
	for i := a.bits - n; i < a.bits; i++ {
		r.setBit(i)
	}
	r.normalize()
}

// Shr performs a logical or arithmetic right shift depending on signed.
func (r *Int) Shr(a Int, n uint, signed bool) {
	if signed {
		r.Ashr(a, n)
	} else {
		r.Lshr(a, n)
	}
}

// CmpSigned returns -1, 0, or 1 comparing a and b as signed integers of
// equal width.
func CmpSigned(a, b Int) (int, error) {
	if err := checkBinary(&a, &b); err != nil {
		return 0, err
	}
	as, bs := a.SignBit(), b.SignBit()
	if as != bs {
		if as {
			return -1, nil
		}
		return 1, nil
	}
	return a.cmpWords(&b), nil
}

// CmpUnsigned returns -1, 0, or 1 comparing a and b as unsigned integers of
// equal width.
func CmpUnsigned(a, b Int) (int, error) {
	if err := checkBinary(&a, &b); err != nil {
		return 0, err
	}
	return a.cmpWords(&b), nil
}

// Log2Unsigned returns floor(log2(a)) treating a as unsigned; a must be
// nonzero.
func (b *Int) Log2Unsigned() (uint, error) {
	if b.Zero() {
		return 0, errors.New("internal: log2 of zero")
	}
	for i := len(b.words) - 1; i >= 0; i-- {
		if b.words[i] != 0 {
			return uint(i)*wordBits + uint(63-bits.LeadingZeros64(b.words[i])), nil
		}
	}
	return 0, errors.New("internal: log2 of zero")
}

// Log2Signed returns floor(log2(a)) treating a as a nonnegative signed
// value; a must be positive.
func (b *Int) Log2Signed() (uint, error) {
	if b.SignBit() {
		return 0, errors.New("internal: log2 of a negative number")
	}
	return b.Log2Unsigned()
}

// UnsignedValue returns the value as a native uint64 if it fits, i.e. if
// every bit above 64 (if any) is zero.
func (b *Int) UnsignedValue() (uint64, bool) {
	if len(b.words) == 0 {
		return 0, true
	}
	for i := 1; i < len(b.words); i++ {
		if b.words[i] != 0 {
			return 0, false
		}
	}
	return b.words[0], true
}

// Equal reports structural equality: same width, same value.
func Equal(a, b Int) bool {
	if a.bits != b.bits {
		return false
	}
	return a.cmpWords(&b) == 0
}
