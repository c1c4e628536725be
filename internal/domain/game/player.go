package game

import "time"

// Account is the identity behind a seat.
type Account struct {
	Name      string `json:"name"`
	IsHuman   bool   `json:"isHuman"`
	Connected bool   `json:"connected"`
	Ready     bool   `json:"ready"`
}

// Free reports a seat nobody occupies.
func (a *Account) Free() bool {
	return a.Name == ""
}

// Player is a scoring seat.
type Player struct {
	Account
	Score        int       `json:"score"`
	CanPress     bool      `json:"canPress"`
	CanBid       bool      `json:"canBid"`
	InGame       bool      `json:"inGame"`
	Answer       string    `json:"-"`
	Answered     bool      `json:"answered"`
	Stake        int       `json:"stake"`
	StakeMade    bool      `json:"stakeMade"`
	BlockedUntil time.Time `json:"-"`
	Report       string    `json:"-"`
	Reported     bool      `json:"reported"`
}

// ResetQuestion clears per-question flags.
func (p *Player) ResetQuestion() {
	p.CanPress = true
	p.CanBid = false
	p.Answer = ""
	p.Answered = false
	p.Stake = 0
	p.StakeMade = false
	p.BlockedUntil = time.Time{}
}

// Active reports a seated, connected player.
func (p *Player) Active() bool {
	return !p.Free() && p.Connected
}

// Showman hosts the game and judges answers.
type Showman struct {
	Account
}

// Viewer watches without a seat.
type Viewer struct {
	Account
}
