package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/refuel-athletics/gelstore/internal/domain/cart"
	"github.com/refuel-athletics/gelstore/internal/domain/formula"
)

type formulaRequest struct {
	params        formula.Parameters
	pouches       int
	quizGenerated bool
}

func decodeFormulaRequest(r *http.Request) (formulaRequest, error) {
	req := formulaRequest{params: formula.DefaultParameters(), pouches: cart.DefaultPouches}
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "parameters":
			req.params, err = decodeParameters(d)
		case "pouches":
			req.pouches, err = d.Int()
		case "quiz_generated":
			req.quizGenerated, err = d.Bool()
		default:
			err = d.Skip()
		}
		return err
	})
	return req, err
}

// ListFlavors handles GET /flavors.
func (h *Handler) ListFlavors(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, f := range formula.Flavors() {
			e.ObjStart()
			e.FieldStart("id")
			e.Str(string(f))
			e.FieldStart("label")
			e.Str(f.Label())
			e.FieldStart("emoji")
			e.Str(f.Emoji())
			e.ObjEnd()
		}
		e.ArrEnd()
	})
}

// PriceFormula handles POST /formula/price.
func (h *Handler) PriceFormula(w http.ResponseWriter, r *http.Request) {
	req, err := decodeFormulaRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := req.params.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	if req.pouches <= 0 || req.pouches > cart.MaxPouches {
		writeError(w, r, errors.Wrapf(cart.ErrInvalidItem, "pouches %d outside 1..%d", req.pouches, cart.MaxPouches))
		return
	}
	q := formula.Price(req.params)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeFormulaQuote(e, q, req.pouches) })
}

// QuizQuestions handles GET /quiz.
func (h *Handler) QuizQuestions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, q := range formula.Questions() {
			e.ObjStart()
			e.FieldStart("id")
			e.Str(string(q.ID))
			e.FieldStart("text")
			e.Str(q.Text)
			e.FieldStart("options")
			e.ArrStart()
			for _, o := range q.Options {
				e.Str(o)
			}
			e.ArrEnd()
			e.ObjEnd()
		}
		e.ArrEnd()
	})
}

// SubmitQuiz handles POST /quiz. The body maps question IDs to answer
// labels; the response is the recommended recipe and its price.
func (h *Handler) SubmitQuiz(w http.ResponseWriter, r *http.Request) {
	answers := formula.Answers{}
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		v, err := d.Str()
		answers[formula.QuestionID(key)] = v
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	p := formula.MapQuiz(answers)
	q := formula.MustPrice(p)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("parameters")
		encodeParameters(e, p)
		e.FieldStart("quote")
		encodeFormulaQuote(e, q, cart.DefaultPouches)
		e.ObjEnd()
	})
}

// ListFormulas handles GET /formulas.
func (h *Handler) ListFormulas(w http.ResponseWriter, r *http.Request) {
	sess := shopperFrom(r.Context()).Session()
	if !sess.SignedIn() {
		writeError(w, r, formula.ErrSignInRequired)
		return
	}
	list, err := h.library.List(r.Context(), sess.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, f := range list {
			encodeSavedFormula(e, f)
		}
		e.ArrEnd()
	})
}

// SaveFormula handles POST /formulas.
func (h *Handler) SaveFormula(w http.ResponseWriter, r *http.Request) {
	req, err := decodeFormulaRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sess := shopperFrom(r.Context()).Session()
	f, err := h.library.Save(r.Context(), sess.UserID, req.params, req.quizGenerated)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeSavedFormula(e, *f) })
}

// DeleteFormula handles DELETE /formulas/{id}.
func (h *Handler) DeleteFormula(w http.ResponseWriter, r *http.Request) {
	sess := shopperFrom(r.Context()).Session()
	if err := h.library.Delete(r.Context(), sess.UserID, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
