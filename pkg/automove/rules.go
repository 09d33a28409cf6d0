package automove

import "github.com/notnil/chess"

// Rules is the rules-engine capability the pipeline consumes. Move
// legality, enumeration and game-over detection all live behind it.
type Rules interface {
	LegalMoves(pos Position) ([]Move, error)
	IsLegal(pos Position, m Move) (bool, error)
	Apply(pos Position, m Move) (Position, error)
	IsGameOver(pos Position) (bool, error)
	IsInCheck(pos Position) (bool, error)
	SideToMove(pos Position) Side
}

// ChessRules implements Rules for standard chess on top of notnil/chess.
type ChessRules struct{}

// NewChessRules returns the standard chess rules engine.
func NewChessRules() ChessRules {
	return ChessRules{}
}

func (ChessRules) load(pos Position) (*chess.Position, error) {
	fen := pos.String()
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, invalidPosition(fen, "rules engine rejected position", err)
	}
	return chess.NewGame(opt).Position(), nil
}

// LegalMoves lists the legal moves in the engine's enumeration order.
func (r ChessRules) LegalMoves(pos Position) ([]Move, error) {
	p, err := r.load(pos)
	if err != nil {
		return nil, err
	}
	valid := p.ValidMoves()
	moves := make([]Move, 0, len(valid))
	for _, m := range valid {
		moves = append(moves, Move(chess.UCINotation{}.Encode(p, m)))
	}
	return moves, nil
}

// IsLegal reports whether m is among the legal moves of pos.
func (r ChessRules) IsLegal(pos Position, m Move) (bool, error) {
	moves, err := r.LegalMoves(pos)
	if err != nil {
		return false, err
	}
	for _, legal := range moves {
		if legal == m {
			return true, nil
		}
	}
	return false, nil
}

// Apply plays m on a copy of pos and returns the resulting position.
func (r ChessRules) Apply(pos Position, m Move) (Position, error) {
	p, err := r.load(pos)
	if err != nil {
		return Position{}, err
	}
	move, err := chess.UCINotation{}.Decode(p, string(m))
	if err != nil {
		return Position{}, invalidPosition(pos.String(), "cannot apply move "+string(m), err)
	}
	for _, legal := range p.ValidMoves() {
		if legal.S1() == move.S1() && legal.S2() == move.S2() && legal.Promo() == move.Promo() {
			return ParsePosition(p.Update(legal).String())
		}
	}
	return Position{}, invalidPosition(pos.String(), "illegal move "+string(m), nil)
}

// IsGameOver reports checkmate or stalemate.
func (r ChessRules) IsGameOver(pos Position) (bool, error) {
	p, err := r.load(pos)
	if err != nil {
		return false, err
	}
	return len(p.ValidMoves()) == 0, nil
}

// IsInCheck reports whether the side to move is in check.
//
// notnil/chess does not expose check status for a loaded position, so the
// turn is handed to the opponent and we look for a move onto our king.
// A checking piece that is itself pinned is not seen this way.
func (r ChessRules) IsInCheck(pos Position) (bool, error) {
	p, err := r.load(pos)
	if err != nil {
		return false, err
	}
	if len(p.ValidMoves()) == 0 {
		return p.Status() == chess.Checkmate, nil
	}

	side := chess.White
	if pos.SideToMove() == Black {
		side = chess.Black
	}
	var king chess.Square
	found := false
	for sq, piece := range p.Board().SquareMap() {
		if piece.Type() == chess.King && piece.Color() == side {
			king, found = sq, true
			break
		}
	}
	if !found {
		return false, nil
	}

	flipped := pos
	flipped.Turn = pos.SideToMove().Other().token()
	flipped.EnPassant = DefaultEnPassant
	// castling never captures, so it cannot matter for an attack test
	flipped.Castling = "-"
	opp, err := r.load(flipped)
	if err != nil {
		return false, err
	}
	for _, m := range opp.ValidMoves() {
		if m.S2() == king {
			return true, nil
		}
	}
	return false, nil
}

// SideToMove reads the side to move from the position.
func (ChessRules) SideToMove(pos Position) Side {
	return pos.SideToMove()
}
