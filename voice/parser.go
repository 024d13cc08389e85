// Package voice turns a transcribed utterance into cart suggestions. It is
// advisory: suggestions reach the cart through the same AddItem and
// SelectTable calls as manual input.
package voice

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"go-restaurant-pos/cart"
	"go-restaurant-pos/models"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type Suggestion struct {
	Product_id   string `json:"product_id"`
	Product_name string `json:"product_name"`
	Quantity     int    `json:"quantity"`
}

type Result struct {
	Suggestions []Suggestion `json:"suggestions"`
	Table_id    int          `json:"table_id,omitempty"`
	Ignored     []string     `json:"ignored,omitempty"`
}

var numerals = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"um": 1, "uma": 1, "dois": 2, "duas": 2, "tres": 3, "quatro": 4, "cinco": 5,
	"seis": 6, "sete": 7, "oito": 8, "nove": 9, "dez": 10,
}

var tableWords = map[string]bool{"table": true, "mesa": true}

type entry struct {
	tokens  []string
	product models.Product
}

type Parser struct {
	entries  []entry
	products map[string]models.Product
}

func NewParser(products []models.Product) *Parser {
	p := &Parser{products: make(map[string]models.Product, len(products))}
	heads := map[string]int{}
	for _, prod := range products {
		tokens := tokenize(prod.Name)
		if len(tokens) == 0 {
			continue
		}
		p.products[prod.Product_id] = prod
		p.entries = append(p.entries, entry{tokens: tokens, product: prod})
		heads[tokens[0]]++
	}
	// "cheeseburger" alone is enough when no other product starts with it
	for _, e := range append([]entry(nil), p.entries...) {
		if len(e.tokens) > 1 && heads[e.tokens[0]] == 1 {
			p.entries = append(p.entries, entry{tokens: e.tokens[:1], product: e.product})
		}
	}
	sort.SliceStable(p.entries, func(i, j int) bool {
		return len(p.entries[i].tokens) > len(p.entries[j].tokens)
	})
	return p
}

func (p *Parser) Parse(text string) Result {
	tokens := tokenize(text)
	used := make([]bool, len(tokens))
	res := Result{Suggestions: []Suggestion{}}

	for i := 0; i+1 < len(tokens); i++ {
		if !tableWords[tokens[i]] {
			continue
		}
		if n, ok := number(tokens[i+1]); ok && n > 0 {
			res.Table_id = n
			used[i], used[i+1] = true, true
			break
		}
	}

	for i := 0; i < len(tokens); i++ {
		if used[i] {
			continue
		}
		e, ok := p.matchAt(tokens, used, i)
		if !ok {
			continue
		}
		end := i + len(e.tokens)
		for k := i; k < end; k++ {
			used[k] = true
		}
		qty := 1
		if q, ok := quantityAt(tokens, used, i-1); ok {
			qty = q
			used[i-1] = true
		} else if q, ok := quantityAt(tokens, used, end); ok {
			// a numeral right before the next product belongs to that product
			if _, next := p.matchAt(tokens, used, end+1); !next {
				qty = q
				used[end] = true
			}
		}
		res.Suggestions = append(res.Suggestions, Suggestion{
			Product_id:   e.product.Product_id,
			Product_name: e.product.Name,
			Quantity:     qty,
		})
		i = end - 1
	}

	for i, tok := range tokens {
		if !used[i] {
			res.Ignored = append(res.Ignored, tok)
		}
	}
	return res
}

func (p *Parser) matchAt(tokens []string, used []bool, i int) (entry, bool) {
	for _, e := range p.entries {
		if i < 0 || i+len(e.tokens) > len(tokens) {
			continue
		}
		ok := true
		for k, want := range e.tokens {
			if used[i+k] || !sameWord(tokens[i+k], want) {
				ok = false
				break
			}
		}
		if ok {
			return e, true
		}
	}
	return entry{}, false
}

// Apply feeds the suggestions into c. Suggestions the cart rejects are
// reported together; the others are still applied.
func (p *Parser) Apply(res Result, c *cart.Cart) error {
	var errs []error
	for _, s := range res.Suggestions {
		prod, ok := p.products[s.Product_id]
		if !ok {
			errs = append(errs, models.ProductNotFound(s.Product_id))
			continue
		}
		if err := c.AddItem(prod, s.Quantity); err != nil {
			errs = append(errs, err)
		}
	}
	if res.Table_id > 0 {
		c.SelectTable(res.Table_id)
	}
	return errors.Join(errs...)
}

func quantityAt(tokens []string, used []bool, i int) (int, bool) {
	if i < 0 || i >= len(tokens) || used[i] {
		return 0, false
	}
	n, ok := number(tokens[i])
	if !ok || n <= 0 {
		return 0, false
	}
	return n, true
}

func number(tok string) (int, bool) {
	if n, ok := numerals[tok]; ok {
		return n, true
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, false
	}
	return n, true
}

func sameWord(got, want string) bool {
	return got == want || got == want+"s" || got == want+"es"
}

// tokenize lowercases, strips accents and splits on anything that is not a
// letter or digit.
func tokenize(s string) []string {
	lower := strings.ToLower(s)
	// A chain keeps state, so each call builds its own.
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(fold, lower)
	if err != nil {
		folded = lower
	}
	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
