// Package rewards implements the reward vine: six discount rewards unlocked
// strictly in order by spending coins.
package rewards

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownReward     = errors.New("unknown reward")
	ErrLocked            = errors.New("grow your roots step by step: unlock the earlier rewards first")
	ErrInsufficientCoins = errors.New("not enough coins")
	ErrAlreadyUnlocked   = errors.New("reward already unlocked")
)

// Kind is the voucher category, used for the node icon.
type Kind string

const (
	KindRation     Kind = "ration"
	KindSeeds      Kind = "seeds"
	KindFertilizer Kind = "fertilizer"
)

// Node is one reward on the vine.
type Node struct {
	ID   int    `json:"id"`
	Cost int    `json:"cost"`
	Text string `json:"text"`
	Kind Kind   `json:"kind"`
	// VineProgress is how far up the vine (0..1) this node sits.
	VineProgress float64 `json:"vine_progress"`
}

// Nodes is the vine, bottom to top.
var Nodes = []Node{
	{ID: 1, Cost: 1000, Text: "3% OFF RATION", Kind: KindRation, VineProgress: 0.15},
	{ID: 2, Cost: 3000, Text: "2% DISC SEEDS", Kind: KindSeeds, VineProgress: 0.31},
	{ID: 3, Cost: 5000, Text: "5% OFF RATION", Kind: KindRation, VineProgress: 0.47},
	{ID: 4, Cost: 6000, Text: "6% OFF FERTILIZER", Kind: KindFertilizer, VineProgress: 0.63},
	{ID: 5, Cost: 8000, Text: "5% DISC SEEDS", Kind: KindSeeds, VineProgress: 0.79},
	{ID: 6, Cost: 10000, Text: "10% OFF RATION", Kind: KindRation, VineProgress: 0.95},
}

// NodeState is a node as seen by one user.
type NodeState struct {
	Node
	Unlocked bool `json:"is_unlocked"`
	Current  bool `json:"is_current"`
}

// Vine is the reward screen state.
type Vine struct {
	Nodes        []NodeState `json:"nodes"`
	Coins        int         `json:"coins"`
	SelectedCrop string      `json:"selected_crop,omitempty"`
	Collected    int         `json:"collected"`
	// Progress is the vine height reached: the last unlocked node's progress.
	Progress float64 `json:"progress"`
}

// Build derives the vine from the unlocked reward ids. The current node is
// the one right after the highest unlocked id.
func Build(unlockedIDs []int, coins int, crop string) Vine {
	unlocked := make(map[int]bool, len(unlockedIDs))
	maxID := 0
	for _, id := range unlockedIDs {
		unlocked[id] = true
		if id > maxID {
			maxID = id
		}
	}

	v := Vine{Coins: coins, SelectedCrop: crop, Nodes: make([]NodeState, len(Nodes))}
	for i, n := range Nodes {
		st := NodeState{Node: n, Unlocked: unlocked[n.ID]}
		st.Current = !st.Unlocked && n.ID == maxID+1
		if st.Unlocked {
			v.Collected++
		}
		if n.ID == maxID {
			v.Progress = n.VineProgress
		}
		v.Nodes[i] = st
	}
	return v
}

// Node returns the state of node id.
func (v Vine) Node(id int) (NodeState, bool) {
	for _, n := range v.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeState{}, false
}

// UnlockedIDs lists unlocked node ids in vine order.
func (v Vine) UnlockedIDs() []int {
	var ids []int
	for _, n := range v.Nodes {
		if n.Unlocked {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// CheckUnlock reports why node id cannot be unlocked now, or nil.
func (v Vine) CheckUnlock(id int) error {
	n, ok := v.Node(id)
	switch {
	case !ok:
		return fmt.Errorf("%w: %d", ErrUnknownReward, id)
	case n.Unlocked:
		return ErrAlreadyUnlocked
	case !n.Current:
		return ErrLocked
	case v.Coins < n.Cost:
		return fmt.Errorf("%w: need %d, have %d", ErrInsufficientCoins, n.Cost, v.Coins)
	}
	return nil
}

// WithUnlocked returns the vine after unlocking id: coins spent, the node
// unlocked and the next node current. It does not validate; see CheckUnlock.
func (v Vine) WithUnlocked(id int) Vine {
	n, ok := v.Node(id)
	if !ok {
		return v
	}
	ids := append(v.UnlockedIDs(), id)
	return Build(ids, v.Coins-n.Cost, v.SelectedCrop)
}

// RedeemCode is the voucher code shown as a QR code at the ration shop.
func RedeemCode(nodeID int, userID string) string {
	return fmt.Sprintf("KHET_REWARD_%d_USER_%s", nodeID, userID)
}
