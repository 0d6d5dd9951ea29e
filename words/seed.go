package words

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
)

func newRand() *rand.Rand {
	var seed [16]byte
	if _, err := crand.Read(seed[:]); err != nil {
		panic("crypto/rand failure: " + err.Error())
	}
	return rand.New(rand.NewPCG(
		binary.LittleEndian.Uint64(seed[:8]),
		binary.LittleEndian.Uint64(seed[8:]),
	))
}

// starterPairs seeds a fresh catalog so the game is playable out of the box.
var starterPairs = []StoredPair{
	{Main: "Coffee", Alt: "Tea", Category: "Food & Drink"},
	{Main: "Butter", Alt: "Margarine", Category: "Food & Drink"},
	{Main: "Pizza", Alt: "Flatbread", Category: "Food & Drink"},
	{Main: "Ketchup", Alt: "Salsa", Category: "Food & Drink"},
	{Main: "Croissant", Alt: "Bagel", Category: "Food & Drink"},
	{Main: "Lion", Alt: "Tiger", Category: "Animals"},
	{Main: "Dolphin", Alt: "Shark", Category: "Animals"},
	{Main: "Crow", Alt: "Raven", Category: "Animals"},
	{Main: "Alligator", Alt: "Crocodile", Category: "Animals"},
	{Main: "Llama", Alt: "Alpaca", Category: "Animals"},
	{Main: "Beach", Alt: "Desert", Category: "Places"},
	{Main: "Library", Alt: "Bookstore", Category: "Places"},
	{Main: "Hotel", Alt: "Hostel", Category: "Places"},
	{Main: "Castle", Alt: "Palace", Category: "Places"},
	{Main: "Harbor", Alt: "Marina", Category: "Places"},
	{Main: "Guitar", Alt: "Ukulele", Category: "Objects"},
	{Main: "Umbrella", Alt: "Parasol", Category: "Objects"},
	{Main: "Sofa", Alt: "Armchair", Category: "Objects"},
	{Main: "Mirror", Alt: "Window", Category: "Objects"},
	{Main: "Candle", Alt: "Lantern", Category: "Objects"},
	{Main: "Cinema", Alt: "Theater", Category: "Entertainment"},
	{Main: "Magician", Alt: "Clown", Category: "Entertainment"},
	{Main: "Violin", Alt: "Cello", Category: "Entertainment"},
	{Main: "Karaoke", Alt: "Concert", Category: "Entertainment"},
	{Main: "Soccer", Alt: "Rugby", Category: "Sports"},
	{Main: "Marathon", Alt: "Sprint", Category: "Sports"},
	{Main: "Skiing", Alt: "Snowboarding", Category: "Sports"},
	{Main: "Boxing", Alt: "Wrestling", Category: "Sports"},
}
