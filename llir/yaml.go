package llir

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// YAMLProgram is the on-disk shape of a program, mirroring the
// block-of-instruction-groups nesting the front-end's own YAML loader
// uses for its instruction streams, adapted here to LLIR's
// block→statement/terminator nesting instead of instruction-group→
// operation nesting.
type YAMLProgram struct {
	Entry     string         `yaml:"entry"`
	Functions []YAMLFunction `yaml:"functions"`
}

// YAMLFunction is one function body.
type YAMLFunction struct {
	ID         string        `yaml:"id"`
	Locals     int           `yaml:"locals"`
	Params     int           `yaml:"params"`
	Promoted   int           `yaml:"promoted"`
	EntryBlock int           `yaml:"entry_block"`
	Blocks     []YAMLBlock   `yaml:"blocks"`
}

// YAMLBlock is one basic block: a statement list and a terminator.
type YAMLBlock struct {
	ID         int              `yaml:"id"`
	Statements []YAMLStatement  `yaml:"statements"`
	Terminator YAMLTerminator   `yaml:"terminator"`
}

// YAMLStatement is one statement. Kind selects which of the optional
// fields are meaningful, mirroring the front-end's own tagged-union YAML
// shape for operations.
type YAMLStatement struct {
	Kind   string      `yaml:"kind"`
	Local  int         `yaml:"local,omitempty"`
	Rvalue *YAMLRvalue `yaml:"rvalue,omitempty"`
}

// YAMLRvalue is an assign statement's right-hand side.
type YAMLRvalue struct {
	Kind      string       `yaml:"kind"`
	Operand   *YAMLOperand `yaml:"operand,omitempty"`
	Local     int          `yaml:"local,omitempty"` // ref/len/address-of target
	Left      *YAMLOperand `yaml:"left,omitempty"`
	Right     *YAMLOperand `yaml:"right,omitempty"`
	Aggregate []YAMLOperand `yaml:"aggregate,omitempty"`
}

// YAMLOperand is a use-site, a mapping whose kind is "copy" or "move"
// (with local), "const", or "fn" (with fn naming the function id).
type YAMLOperand struct {
	Kind  string `yaml:"kind"`
	Local int    `yaml:"local,omitempty"`
	Fn    string `yaml:"fn,omitempty"`
}

// YAMLTerminator is a basic block's terminator.
type YAMLTerminator struct {
	Kind     string        `yaml:"kind"`
	Target   int           `yaml:"target,omitempty"`
	Operand  *YAMLOperand  `yaml:"operand,omitempty"`
	Targets  []int         `yaml:"targets,omitempty"`
	Callee   string        `yaml:"callee,omitempty"`
	Args     []YAMLOperand `yaml:"args,omitempty"`
	DestLocal *int         `yaml:"dest_local,omitempty"`
	DestBlock int           `yaml:"dest_block,omitempty"`
	Cleanup   *int          `yaml:"cleanup,omitempty"`
	Expected  bool          `yaml:"expected,omitempty"`
}

func convertOperand(o *YAMLOperand) (Operand, error) {
	if o == nil {
		return Operand{}, fmt.Errorf("llir: nil operand")
	}
	switch o.Kind {
	case "copy":
		return CopyOf(BasePlace(Local(o.Local))), nil
	case "move":
		return MoveOf(BasePlace(Local(o.Local))), nil
	case "const":
		return ConstOperand(), nil
	case "fn":
		return FnOperand(FunctionID(o.Fn)), nil
	default:
		return Operand{}, fmt.Errorf("llir: unknown operand kind %q", o.Kind)
	}
}

func convertRvalue(r *YAMLRvalue) (Rvalue, error) {
	if r == nil {
		return Rvalue{}, fmt.Errorf("llir: assign statement missing rvalue")
	}
	switch r.Kind {
	case "use":
		op, err := convertOperand(r.Operand)
		return Rvalue{Kind: RvalueUse, Operand: op}, err
	case "repeat":
		op, err := convertOperand(r.Operand)
		return Rvalue{Kind: RvalueRepeat, Operand: op}, err
	case "unary":
		op, err := convertOperand(r.Operand)
		return Rvalue{Kind: RvalueUnary, Operand: op}, err
	case "cast":
		op, err := convertOperand(r.Operand)
		return Rvalue{Kind: RvalueCast, Operand: op}, err
	case "discriminant":
		op, err := convertOperand(r.Operand)
		return Rvalue{Kind: RvalueDiscriminant, Operand: op}, err
	case "ref":
		return Rvalue{Kind: RvalueRef, Place: BasePlace(Local(r.Local))}, nil
	case "len":
		return Rvalue{Kind: RvalueLen, Place: BasePlace(Local(r.Local))}, nil
	case "address_of":
		return Rvalue{Kind: RvalueAddressOf, Place: BasePlace(Local(r.Local))}, nil
	case "binary":
		left, err := convertOperand(r.Left)
		if err != nil {
			return Rvalue{}, err
		}
		right, err := convertOperand(r.Right)
		return Rvalue{Kind: RvalueBinary, Left: left, Right: right}, err
	case "checked_binary":
		left, err := convertOperand(r.Left)
		if err != nil {
			return Rvalue{}, err
		}
		right, err := convertOperand(r.Right)
		return Rvalue{Kind: RvalueCheckedBinary, Left: left, Right: right}, err
	case "size_of":
		return Rvalue{Kind: RvalueNullarySizeOf}, nil
	case "box":
		return Rvalue{Kind: RvalueNullaryBox}, nil
	case "aggregate":
		ops := make([]Operand, 0, len(r.Aggregate))
		for i := range r.Aggregate {
			op, err := convertOperand(&r.Aggregate[i])
			if err != nil {
				return Rvalue{}, err
			}
			ops = append(ops, op)
		}
		return Rvalue{Kind: RvalueAggregate, Aggregate: ops}, nil
	default:
		return Rvalue{}, fmt.Errorf("llir: unknown rvalue kind %q", r.Kind)
	}
}

func convertStatement(s YAMLStatement) (Statement, error) {
	switch s.Kind {
	case "storage_enter":
		return Statement{Kind: StmtStorageEnter, Place: BasePlace(Local(s.Local))}, nil
	case "storage_leave":
		return Statement{Kind: StmtStorageLeave, Place: BasePlace(Local(s.Local))}, nil
	case "assign":
		rv, err := convertRvalue(s.Rvalue)
		if err != nil {
			return Statement{}, err
		}
		return Statement{Kind: StmtAssign, Place: BasePlace(Local(s.Local)), Rvalue: rv}, nil
	case "set_discriminant":
		return Statement{Kind: StmtSetDiscriminant, Place: BasePlace(Local(s.Local))}, nil
	case "nop":
		return Statement{Kind: StmtNop}, nil
	case "fake_read":
		return Statement{Kind: StmtFakeRead}, nil
	case "retag":
		return Statement{Kind: StmtRetag}, nil
	case "inline_assembly":
		return Statement{Kind: StmtInlineAssembly}, nil
	case "ascribe_user_type":
		return Statement{Kind: StmtAscribeUserType}, nil
	default:
		return Statement{}, fmt.Errorf("llir: unknown statement kind %q", s.Kind)
	}
}

func convertTerminator(t YAMLTerminator) (Terminator, error) {
	out := Terminator{Expected: t.Expected}
	if t.Cleanup != nil {
		out.Cleanup = BlockID(*t.Cleanup)
		out.HasCleanup = true
	}
	switch t.Kind {
	case "return":
		out.Kind = TermReturn
	case "goto":
		out.Kind = TermGoto
		out.Target = BlockID(t.Target)
	case "switch_int":
		out.Kind = TermSwitchInt
		op, err := convertOperand(t.Operand)
		if err != nil {
			return Terminator{}, err
		}
		out.Operand = op
		for _, target := range t.Targets {
			out.SwitchTargets = append(out.SwitchTargets, BlockID(target))
		}
	case "call":
		out.Kind = TermCall
		out.Callee = FunctionID(t.Callee)
		for i := range t.Args {
			op, err := convertOperand(&t.Args[i])
			if err != nil {
				return Terminator{}, err
			}
			out.Args = append(out.Args, CallArg{Operand: op})
		}
		if t.DestLocal != nil {
			out.Dest = &CallDest{Place: BasePlace(Local(*t.DestLocal)), Block: BlockID(t.DestBlock)}
		}
	case "drop":
		out.Kind = TermDrop
		out.Target = BlockID(t.Target)
	case "assert":
		out.Kind = TermAssert
		op, err := convertOperand(t.Operand)
		if err != nil {
			return Terminator{}, err
		}
		out.Operand = op
		out.Target = BlockID(t.Target)
	case "resume":
		out.Kind = TermResume
	case "abort":
		out.Kind = TermAbort
	case "unreachable":
		out.Kind = TermUnreachable
	default:
		return Terminator{}, fmt.Errorf("llir: unknown terminator kind %q", t.Kind)
	}
	return out, nil
}

// ParseYAML parses a YAML-encoded program per the schema above.
func ParseYAML(data []byte) (Program, error) {
	var doc YAMLProgram
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Program{}, fmt.Errorf("llir: parsing yaml: %w", err)
	}

	prog := Program{
		Functions: make(map[FunctionID]Function, len(doc.Functions)),
		Entry:     FunctionID(doc.Entry),
	}

	for _, yf := range doc.Functions {
		fn := Function{
			ID:         FunctionID(yf.ID),
			Name:       yf.ID,
			EntryBlock: BlockID(yf.EntryBlock),
		}
		for i := 0; i < yf.Locals; i++ {
			fn.Locals = append(fn.Locals, LocalDecl{Index: Local(i), IsParamOrReturn: i == int(ReturnLocal) || i <= yf.Params})
		}
		for i := 0; i < yf.Promoted; i++ {
			fn.Promoted = append(fn.Promoted, PromotedConstant{Index: i})
		}
		for _, yb := range yf.Blocks {
			block := BasicBlock{ID: BlockID(yb.ID)}
			for _, ys := range yb.Statements {
				st, err := convertStatement(ys)
				if err != nil {
					return Program{}, fmt.Errorf("llir: function %s block %d: %w", yf.ID, yb.ID, err)
				}
				block.Statements = append(block.Statements, st)
			}
			term, err := convertTerminator(yb.Terminator)
			if err != nil {
				return Program{}, fmt.Errorf("llir: function %s block %d: %w", yf.ID, yb.ID, err)
			}
			block.Terminator = term
			fn.Blocks = append(fn.Blocks, block)
		}
		prog.Functions[fn.ID] = fn
	}

	return prog, nil
}

// LoadProgramFileFromYAML reads and parses a program from a YAML file on
// disk, mirroring the front-end's own LoadProgramFileFromYAML loader.
func LoadProgramFileFromYAML(path string) (Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Program{}, fmt.Errorf("llir: reading %s: %w", path, err)
	}
	return ParseYAML(data)
}
