package vm

import (
	"fmt"
	"sort"

	"n2t.dev/toolchain/pkg/asm"
)

// ----------------------------------------------------------------------------
// Translation tables

// binaryCompTable maps a binary arithmetic/bitwise ArithOpType to the 'comp' bit-codes
// used once both operands are staged as 'D' (the popped top) and 'M' (the new top, via
// 'A' pointing one slot below the decremented stack pointer).
var binaryCompTable = map[ArithOpType]string{
	Add: "D+M", Sub: "M-D", And: "D&M", Or: "D|M",
}

// comparisonJumpTable maps a comparison ArithOpType to the Hack jump mnemonic that fires
// when 'x - y' satisfies the comparison (x being the operand below the top, y the top).
var comparisonJumpTable = map[ArithOpType]string{
	Eq: "JEQ", Gt: "JGT", Lt: "JLT",
}

// segmentBaseTable maps the indirectly-addressed segments to the Hack symbol holding
// their base address; the actual location is reached through one level of indirection
// ('@base', 'D=M', then offset by the requested index).
var segmentBaseTable = map[SegmentType]string{
	Local: "LCL", Argument: "ARG", This: "THIS", That: "THAT",
}

// ----------------------------------------------------------------------------
// Vm Lowerer

// The Lowerer takes a fully parsed 'vm.Program' and produces its 'asm.Program' counterpart,
// implementing the nand2tetris VM-to-Hack calling convention: per-segment stack push/pop,
// arithmetic/comparison via minted unique labels, control flow scoped to the enclosing
// function, and the function call/return frame save-restore protocol.
//
// A single Lowerer is meant to lower an entire run (every module parsed for the invocation):
// the unique-label counter is shared state, so two separate Lowerer instances over the same
// run risk minting colliding labels (in particular for the comparison and call-site labels).
type Lowerer struct {
	program      Program
	labelSeq     uint32
	currFunction string // Qualifies 'label'/'goto' scoping, updated on every FuncDecl seen.
}

// Initializes and returns to the caller a brand new 'Lowerer' struct.
// Requires the argument Program to be not nil nor empty.
func NewLowerer(p Program) Lowerer {
	return Lowerer{program: p}
}

// Lower walks every module in the program, in a deterministic (alphabetically sorted)
// order so that the resulting assembly doesn't depend on Go's random map iteration, and
// returns the concatenated 'asm.Program' implementing its VM semantics.
func (l *Lowerer) Lower() (asm.Program, error) {
	if len(l.program) == 0 {
		return nil, fmt.Errorf("the given 'program' is empty")
	}

	names := make([]string, 0, len(l.program))
	for name := range l.program {
		names = append(names, name)
	}
	sort.Strings(names)

	program := asm.Program{}
	for _, name := range names {
		l.currFunction = name // Labels appearing before any FuncDecl fall back to the module name.

		for _, operation := range l.program[name] {
			var inst []asm.Instruction
			var err error

			switch tOperation := operation.(type) {
			case MemoryOp:
				inst, err = l.handleMemoryOp(name, tOperation)
			case ArithmeticOp:
				inst, err = l.handleArithmeticOp(tOperation)
			case LabelDecl:
				inst, err = l.handleLabelDecl(tOperation)
			case GotoOp:
				inst, err = l.handleGotoOp(tOperation)
			case FuncDecl:
				inst, err = l.handleFuncDecl(tOperation)
			case FuncCallOp:
				inst, err = l.handleFuncCallOp(tOperation)
			case ReturnOp:
				inst, err = l.handleReturnOp(tOperation)
			default:
				err = fmt.Errorf("unrecognized operation '%T'", operation)
			}

			if err != nil {
				return nil, err
			}
			program = append(program, inst...)
		}
	}

	return program, nil
}

// Bootstrap returns the asm.Program prologue every Hack executable needs: it sets the
// Stack Pointer to its base address (256) and calls 'Sys.init' with no arguments, exactly
// as a 'call Sys.init 0' appearing in the VM source would have been lowered. It shares this
// Lowerer's label-seed counter so the return-address label it mints can't collide with one
// from a real call site in the program.
func (l *Lowerer) Bootstrap() (asm.Program, error) {
	setSP := []asm.Instruction{
		asm.AInstruction{Location: "256"},
		asm.CInstruction{Dest: "D", Comp: "A"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	}

	l.currFunction = "Bootstrap"
	call, err := l.handleFuncCallOp(FuncCallOp{Name: "Sys.init", NArgs: 0})
	if err != nil {
		return nil, err
	}

	return append(setSP, call...), nil
}

// scopedLabel qualifies a VM label with the enclosing function's name: VM labels are only
// meaningful within the function (or module, before any function is declared) that owns
// them, while Hack assembly labels are global, so without qualification two functions each
// declaring e.g. 'label LOOP' would collide.
func (l *Lowerer) scopedLabel(name string) string {
	return fmt.Sprintf("%s$%s", l.currFunction, name)
}

// ----------------------------------------------------------------------------
// Stack primitives

// pushD appends to the stack whatever value is currently held in the D register.
func pushD() []asm.Instruction {
	return []asm.Instruction{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "M+1"},
	}
}

// popToD pops the stack's top value into the D register, decrementing the stack pointer.
func popToD() []asm.Instruction {
	return []asm.Instruction{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
	}
}

// directLocation resolves a directly-addressed segment ('pointer', 'temp') location. Unlike
// 'local'/'argument'/'this'/'that' these don't go through a base-pointer indirection: 'pointer'
// aliases THIS/THAT directly and 'temp' aliases the fixed RAM[5..12] window.
func directLocation(segment SegmentType, offset uint16) (string, error) {
	switch segment {
	case Pointer:
		if offset > 1 {
			return "", fmt.Errorf("invalid 'pointer' offset, got %d", offset)
		}
		if offset == 0 {
			return "THIS", nil
		}
		return "THAT", nil
	case Temp:
		if offset > 7 {
			return "", fmt.Errorf("invalid 'temp' offset, got %d", offset)
		}
		return fmt.Sprintf("R%d", 5+offset), nil
	default:
		return "", fmt.Errorf("segment '%s' is not direct-addressed", segment)
	}
}

// ----------------------------------------------------------------------------
// Op handlers

// Specialized function to lower a 'vm.MemoryOp' into its 'asm.Instruction' sequence.
func (l *Lowerer) handleMemoryOp(module string, op MemoryOp) ([]asm.Instruction, error) {
	switch op.Segment {
	case Constant:
		if op.Operation == Pop {
			return nil, fmt.Errorf("cannot 'pop' into the read-only 'constant' segment")
		}
		return append([]asm.Instruction{
			asm.AInstruction{Location: fmt.Sprint(op.Offset)},
			asm.CInstruction{Dest: "D", Comp: "A"},
		}, pushD()...), nil

	case Local, Argument, This, That:
		base := segmentBaseTable[op.Segment]

		if op.Operation == Push {
			return append([]asm.Instruction{
				asm.AInstruction{Location: base},
				asm.CInstruction{Dest: "D", Comp: "M"},
				asm.AInstruction{Location: fmt.Sprint(op.Offset)},
				asm.CInstruction{Dest: "A", Comp: "D+A"},
				asm.CInstruction{Dest: "D", Comp: "M"},
			}, pushD()...), nil
		}

		// Pop: the destination address must be stashed in a scratch register (R13) before
		// popping the stack, since the pop itself clobbers D with the popped value; writing
		// the address straight to 'A' and only then popping would lose it to the pop's own
		// addressing (the classic 'pop' bug: the destination needs to survive the pop).
		program := []asm.Instruction{
			asm.AInstruction{Location: base},
			asm.CInstruction{Dest: "D", Comp: "M"},
			asm.AInstruction{Location: fmt.Sprint(op.Offset)},
			asm.CInstruction{Dest: "D", Comp: "D+A"},
			asm.AInstruction{Location: "R13"},
			asm.CInstruction{Dest: "M", Comp: "D"},
		}
		program = append(program, popToD()...)
		program = append(program,
			asm.AInstruction{Location: "R13"},
			asm.CInstruction{Dest: "A", Comp: "M"},
			asm.CInstruction{Dest: "M", Comp: "D"},
		)
		return program, nil

	case Pointer, Temp:
		loc, err := directLocation(op.Segment, op.Offset)
		if err != nil {
			return nil, err
		}
		if op.Operation == Push {
			return append([]asm.Instruction{
				asm.AInstruction{Location: loc},
				asm.CInstruction{Dest: "D", Comp: "M"},
			}, pushD()...), nil
		}
		program := popToD()
		return append(program, asm.AInstruction{Location: loc}, asm.CInstruction{Dest: "M", Comp: "D"}), nil

	case Static:
		loc := fmt.Sprintf("%s.%d", module, op.Offset)
		if op.Operation == Push {
			return append([]asm.Instruction{
				asm.AInstruction{Location: loc},
				asm.CInstruction{Dest: "D", Comp: "M"},
			}, pushD()...), nil
		}
		program := popToD()
		return append(program, asm.AInstruction{Location: loc}, asm.CInstruction{Dest: "M", Comp: "D"}), nil

	default:
		return nil, fmt.Errorf("unrecognized segment '%s'", op.Segment)
	}
}

// Specialized function to lower a 'vm.ArithmeticOp' into its 'asm.Instruction' sequence.
func (l *Lowerer) handleArithmeticOp(op ArithmeticOp) ([]asm.Instruction, error) {
	switch op.Operation {
	case Neg, Not:
		comp := "-M"
		if op.Operation == Not {
			comp = "!M"
		}
		return []asm.Instruction{
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "A", Comp: "M-1"},
			asm.CInstruction{Dest: "M", Comp: comp},
		}, nil

	case Add, Sub, And, Or:
		comp, found := binaryCompTable[op.Operation]
		if !found {
			return nil, fmt.Errorf("unrecognized arithmetic operation '%s'", op.Operation)
		}
		return []asm.Instruction{
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "AM", Comp: "M-1"},
			asm.CInstruction{Dest: "D", Comp: "M"},
			asm.CInstruction{Dest: "A", Comp: "A-1"},
			asm.CInstruction{Dest: "M", Comp: comp},
		}, nil

	case Eq, Gt, Lt:
		jump, found := comparisonJumpTable[op.Operation]
		if !found {
			return nil, fmt.Errorf("unrecognized comparison operation '%s'", op.Operation)
		}
		l.labelSeq++
		trueLabel := fmt.Sprintf("%s$CMP_TRUE.%d", l.currFunction, l.labelSeq)
		endLabel := fmt.Sprintf("%s$CMP_END.%d", l.currFunction, l.labelSeq)

		return []asm.Instruction{
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "AM", Comp: "M-1"},
			asm.CInstruction{Dest: "D", Comp: "M"},
			asm.CInstruction{Dest: "A", Comp: "A-1"},
			asm.CInstruction{Dest: "D", Comp: "M-D"}, // D = x - y
			asm.AInstruction{Location: trueLabel},
			asm.CInstruction{Comp: "D", Jump: jump},
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "A", Comp: "M-1"},
			asm.CInstruction{Dest: "M", Comp: "0"}, // False = 0
			asm.AInstruction{Location: endLabel},
			asm.CInstruction{Comp: "0", Jump: "JMP"},
			asm.LabelDecl{Name: trueLabel},
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "A", Comp: "M-1"},
			asm.CInstruction{Dest: "M", Comp: "-1"}, // True = -1 (all bits set)
			asm.LabelDecl{Name: endLabel},
		}, nil

	default:
		return nil, fmt.Errorf("unrecognized arithmetic operation '%s'", op.Operation)
	}
}

// Specialized function to lower a 'vm.LabelDecl' into its 'asm.Instruction' sequence.
func (l *Lowerer) handleLabelDecl(op LabelDecl) ([]asm.Instruction, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("unable to lower a label declaration with an empty name")
	}
	return []asm.Instruction{asm.LabelDecl{Name: l.scopedLabel(op.Name)}}, nil
}

// Specialized function to lower a 'vm.GotoOp' into its 'asm.Instruction' sequence.
func (l *Lowerer) handleGotoOp(op GotoOp) ([]asm.Instruction, error) {
	if op.Label == "" {
		return nil, fmt.Errorf("unable to lower a 'goto' with an empty label")
	}
	label := l.scopedLabel(op.Label)

	if op.Jump == Unconditional {
		return []asm.Instruction{
			asm.AInstruction{Location: label},
			asm.CInstruction{Comp: "0", Jump: "JMP"},
		}, nil
	}

	program := popToD()
	return append(program, asm.AInstruction{Location: label}, asm.CInstruction{Comp: "D", Jump: "JNE"}), nil
}

// Specialized function to lower a 'vm.FuncDecl' into its 'asm.Instruction' sequence.
//
// Emits the entry label followed by 'NLocal' pushes of the constant 0, one per local
// variable the function expects to find already zero-initialized on the stack.
func (l *Lowerer) handleFuncDecl(op FuncDecl) ([]asm.Instruction, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("unable to lower a function declaration with an empty name")
	}
	l.currFunction = op.Name

	program := []asm.Instruction{asm.LabelDecl{Name: op.Name}}
	for i := uint8(0); i < op.NLocal; i++ {
		program = append(program, asm.AInstruction{Location: "0"}, asm.CInstruction{Dest: "D", Comp: "A"})
		program = append(program, pushD()...)
	}
	return program, nil
}

// Specialized function to lower a 'vm.FuncCallOp' into its 'asm.Instruction' sequence.
//
// Saves the caller's frame (return address, LCL, ARG, THIS, THAT) on the stack, repositions
// ARG to the start of the callee's arguments, repositions LCL to the current stack top, then
// jumps to the callee. The return-address label minted here is unique per call site.
func (l *Lowerer) handleFuncCallOp(op FuncCallOp) ([]asm.Instruction, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("unable to lower a function call with an empty name")
	}
	l.labelSeq++
	retLabel := fmt.Sprintf("%s$ret.%d", op.Name, l.labelSeq)

	program := []asm.Instruction{
		asm.AInstruction{Location: retLabel},
		asm.CInstruction{Dest: "D", Comp: "A"},
	}
	program = append(program, pushD()...)

	for _, segment := range []string{"LCL", "ARG", "THIS", "THAT"} {
		program = append(program, asm.AInstruction{Location: segment}, asm.CInstruction{Dest: "D", Comp: "M"})
		program = append(program, pushD()...)
	}

	program = append(program,
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: fmt.Sprint(op.NArgs)},
		asm.CInstruction{Dest: "D", Comp: "D-A"},
		asm.AInstruction{Location: "5"},
		asm.CInstruction{Dest: "D", Comp: "D-A"},
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "M", Comp: "D"}, // ARG = SP - NArgs - 5
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "LCL"},
		asm.CInstruction{Dest: "M", Comp: "D"}, // LCL = SP
		asm.AInstruction{Location: op.Name},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
		asm.LabelDecl{Name: retLabel},
	)

	return program, nil
}

// Specialized function to lower a 'vm.ReturnOp' into its 'asm.Instruction' sequence.
//
// Restores the caller's segment pointers and stack from the callee's frame (saved by the
// matching FuncCallOp), places the callee's return value at the top of the caller's stack,
// and jumps back to the return address.
func (l *Lowerer) handleReturnOp(ReturnOp) ([]asm.Instruction, error) {
	return []asm.Instruction{
		// R13 = FRAME = LCL
		asm.AInstruction{Location: "LCL"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// R14 = RET = *(FRAME-5)
		asm.AInstruction{Location: "5"},
		asm.CInstruction{Dest: "A", Comp: "D-A"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "R14"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// *ARG = pop()
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// SP = ARG + 1
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "D", Comp: "M+1"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// THAT = *(FRAME-1)
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "THAT"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// THIS = *(FRAME-2)
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "THIS"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// ARG = *(FRAME-3)
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// LCL = *(FRAME-4)
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "LCL"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// goto RET
		asm.AInstruction{Location: "R14"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
	}, nil
}
