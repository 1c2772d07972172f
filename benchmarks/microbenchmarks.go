package benchmarks

import (
	"github.com/sarchlab/gbacore/emu"
	"github.com/sarchlab/gbacore/insts"
)

// GetMicrobenchmarks returns the standard set of microbenchmarks. Each one
// targets a specific timing characteristic of the core and its bus.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		arithmeticIWRAM(),
		loopCountdown(),
		memorySequential(),
		multiply(),
		functionCalls(),
		thumbLoop(),
		blockTransfer(),
	}
}

// GetCoreBenchmarks returns a minimal set for quick validation: a loop,
// memory traffic and calls.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		loopCountdown(),
		memorySequential(),
		functionCalls(),
	}
}

func buildArithmetic() []byte {
	instrs := make([]uint32, 0, 21)
	for i := 0; i < 20; i++ {
		r := uint32(i % 5)
		instrs = append(instrs, EncodeADDImm(r, r, 1, false))
	}
	instrs = append(instrs, EncodeSWI(ExitSWI))
	return BuildProgram(instrs...)
}

func arithmeticSequential() Benchmark {
	return Benchmark{
		Name:         "arithmetic_sequential",
		Description:  "20 independent ADDs fetched from ROM - measures fetch wait states",
		Program:      buildArithmetic(),
		ExpectedExit: 4,
	}
}

func arithmeticIWRAM() Benchmark {
	return Benchmark{
		Name:         "arithmetic_iwram",
		Description:  "20 independent ADDs fetched from IWRAM - zero wait-state baseline",
		Program:      buildArithmetic(),
		Base:         IWRAMBase,
		ExpectedExit: 4,
	}
}

func loopCountdown() Benchmark {
	loop := ROMBase + 8
	return Benchmark{
		Name:        "loop_countdown",
		Description: "100 iterations of ADD/SUBS/BNE - measures branch refill cost",
		Program: BuildProgram(
			EncodeMOVImm(1, 100),
			EncodeMOVImm(0, 0),
			EncodeADDImm(0, 0, 2, false),
			EncodeSUBImm(1, 1, 1, true),
			EncodeB(insts.CondNE, ROMBase+16, loop),
			EncodeSWI(ExitSWI),
		),
		ExpectedExit: 200,
	}
}

func memorySequential() Benchmark {
	instrs := []uint32{
		EncodeMOVImm(2, EWRAMBase),
		EncodeMOVImm(1, 7),
		EncodeMOVImm(0, 0),
	}
	for i := uint32(0); i < 8; i++ {
		instrs = append(instrs, EncodeSTR(1, 2, i*4))
	}
	for i := uint32(0); i < 8; i++ {
		instrs = append(instrs,
			EncodeLDR(3, 2, i*4),
			EncodeADDReg(0, 0, 3, false),
		)
	}
	instrs = append(instrs, EncodeSWI(ExitSWI))

	return Benchmark{
		Name:         "memory_sequential",
		Description:  "8 stores and 8 loads to EWRAM - measures data wait states",
		Program:      BuildProgram(instrs...),
		ExpectedExit: 56,
	}
}

func multiply() Benchmark {
	return Benchmark{
		Name:        "multiply",
		Description: "MUL and MLA with short and long multipliers - measures early termination",
		Setup: func(regs *emu.RegisterFile, memory *emu.Memory) {
			regs.R[1] = 3
			regs.R[2] = 5
			regs.R[3] = 0x40000000
		},
		Program: BuildProgram(
			EncodeMUL(0, 1, 2),
			EncodeMUL(4, 1, 3),
			EncodeMUL(5, 2, 3),
			EncodeMLA(0, 1, 2, 0),
			EncodeSWI(ExitSWI),
		),
		ExpectedExit: 30,
	}
}

func functionCalls() Benchmark {
	fn := ROMBase + 20
	return Benchmark{
		Name:        "function_calls",
		Description: "3 calls (BL + BX LR pairs) - measures call overhead",
		Program: BuildProgram(
			EncodeMOVImm(0, 0),
			EncodeBL(ROMBase+4, fn),
			EncodeBL(ROMBase+8, fn),
			EncodeBL(ROMBase+12, fn),
			EncodeSWI(ExitSWI),
			EncodeADDImm(0, 0, 1, false),
			EncodeBX(14),
		),
		ExpectedExit: 3,
	}
}

func thumbLoop() Benchmark {
	loop := ROMBase + 4
	return Benchmark{
		Name:        "thumb_loop",
		Description: "50 iterations of a Thumb countdown loop - measures halfword fetch",
		Program: BuildThumbProgram(
			EncodeThumbMOVImm(1, 50),
			EncodeThumbMOVImm(0, 0),
			EncodeThumbADDImm(0, 3),
			EncodeThumbSUBImm(1, 1),
			EncodeThumbB(insts.CondNE, ROMBase+8, loop),
			EncodeThumbSWI(ExitSWI),
		),
		Thumb:        true,
		ExpectedExit: 150,
	}
}

func blockTransfer() Benchmark {
	return Benchmark{
		Name:        "block_transfer",
		Description: "STMIA/LDMIA of four registers through IWRAM - measures burst transfers",
		Program: BuildProgram(
			EncodeMOVImm(8, IWRAMBase),
			EncodeMOVImm(0, 1),
			EncodeMOVImm(1, 2),
			EncodeMOVImm(2, 3),
			EncodeMOVImm(3, 4),
			EncodeSTMIA(8, 0x000F),
			EncodeSUBImm(8, 8, 16, false),
			EncodeLDMIA(8, 0x00F0),
			EncodeADDReg(0, 4, 5, false),
			EncodeADDReg(0, 0, 6, false),
			EncodeADDReg(0, 0, 7, false),
			EncodeSWI(ExitSWI),
		),
		ExpectedExit: 10,
	}
}
