package species

import (
	"crypto/sha256"
	"encoding/hex"
	"image/color"
	"math/big"
	"math/rand/v2"
	"strconv"
	"strings"
)

var (
	nameLengths = []int{5, 6, 6, 7, 7}
	nameLetters = []string{"bcdfghjklmnprstvwxz", "aeiouy"}
)

// NewSalt returns a random salt for Name and Color. One salt is drawn per
// process so names are stable for a run but differ between runs.
func NewSalt(rng *rand.Rand) string {
	return strconv.FormatFloat(rng.Float64(), 'f', -1, 64)
}

// digest hashes the id and salt into one large unsigned integer.
func digest(id int, salt string) *big.Int {
	sum := sha256.Sum256([]byte(strconv.Itoa(id) + salt))
	n, _ := new(big.Int).SetString(hex.EncodeToString(sum[:]), 16)
	return n
}

// Name returns a pronounceable name for a species, alternating consonants
// and vowels.
func Name(id int, salt string) string {
	n := digest(id, salt)
	rem := new(big.Int)

	next := func(options int) int {
		n.QuoRem(n, big.NewInt(int64(options)), rem)
		return int(rem.Int64())
	}

	length := nameLengths[next(len(nameLengths))]
	var b strings.Builder
	for i := 0; i < length; i++ {
		letters := nameLetters[i%len(nameLetters)]
		letter := letters[next(len(letters))]
		// n?g reads badly; use n?m
		if prev := b.String(); i >= 2 && letter == 'g' && (prev[i-2] == 'n' || prev[i-2] == 'N') {
			letter = 'm'
		}
		if i == 0 {
			letter -= 'a' - 'A'
		}
		b.WriteByte(letter)
	}
	return b.String()
}

// Color returns the display colour of a species.
func Color(id int, salt string) color.RGBA {
	n := digest(id, salt)
	rem := new(big.Int)

	n.QuoRem(n, big.NewInt(10000), rem)
	hue := float64(rem.Int64()) / 10000
	n.Rem(n, big.NewInt(100))
	brightness := float64(n.Int64()) / 100

	r, g, b := hueToRGB(hue)
	r, g, b = brighten(r, g, b, 0.85+0.6*brightness)
	return color.RGBA{R: toByte(r), G: toByte(g), B: toByte(b), A: 255}
}

// hueToRGB maps a hue in [0, 1) onto a palette that skips muddy tones.
func hueToRGB(hue float64) (float64, float64, float64) {
	h := hue * 6
	h -= float64(int(h))

	var r, g, b float64
	switch {
	case hue < 1.0/6:
		r, g, b = 1, h, 0
	case hue < 2.0/6:
		r, g, b = 1-h, 1, 0
	case hue < 3.0/6:
		r, g, b = 0, 1, h
	case hue < 4.0/6:
		r, g, b = h*0.4, 1-h*0.6, 1
	case hue < 5.0/6:
		r, g, b = 0.4+0.6*h, 0.4, 1
	default:
		r, g, b = 1, 0.4-0.4*h, 1-h
	}
	return 255 * r, 200 * g, 255 * b
}

// brighten darkens towards black for f < 1 and lightens towards white above.
func brighten(r, g, b, f float64) (float64, float64, float64) {
	if f >= 1 {
		t := f - 1
		return r + (255-r)*t, g + (255-g)*t, b + (255-b)*t
	}
	return r * f, g * f, b * f
}

func toByte(v float64) uint8 {
	return uint8(min(max(v, 0), 255))
}
