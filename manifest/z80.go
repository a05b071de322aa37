package manifest

// Z80 returns the manifest of the Z80 core headers. It must be extended by
// hand whenever Z80.h or Z/types/integral.h gain an ABI-relevant symbol.
func Z80() *Manifest {
	return New(
		Section{
			Header: "integral.h",
			Symbols: []SymbolRef{
				TypeRef("zusize"),
				TypeRef("zuint8"),
				TypeRef("zuint16"),
				TypeRef("zuint32"),
				TypeRef("zint16"),
				TypeRef("zint32"),
				TypeRef("zboolean"),
				TypeRef("zcontext"),
			},
		},
		Section{
			Header: "Z80.h",
			Symbols: []SymbolRef{
				ConstRef("Z80_MAXIMUM_CYCLES_PER_STEP"),
				ConstRef("Z80_MINIMUM_CYCLES_PER_STEP"),
				ConstRef("Z80_HOOK"),

				// status flags
				ConstRef("Z80_SF"),
				ConstRef("Z80_ZF"),
				ConstRef("Z80_YF"),
				ConstRef("Z80_HF"),
				ConstRef("Z80_XF"),
				ConstRef("Z80_PF"),
				ConstRef("Z80_NF"),
				ConstRef("Z80_CF"),

				TypeRef("Z80"),

				ConstRef("Z80_OPTION_OUT_VC_255"),
				ConstRef("Z80_OPTION_LD_A_IR_BUG"),
				ConstRef("Z80_OPTION_HALT_SKIP"),
				ConstRef("Z80_OPTION_XQ"),
				ConstRef("Z80_OPTION_IM0_RETX_NOTIFICATIONS"),
				ConstRef("Z80_OPTION_YQ"),

				ConstRef("Z80_MODEL_ZILOG_NMOS"),
				ConstRef("Z80_MODEL_ZILOG_CMOS"),
				ConstRef("Z80_MODEL_NEC_NMOS"),
				ConstRef("Z80_MODEL_ST_CMOS"),

				ConstRef("Z80_REQUEST_REJECT_NMI"),
				ConstRef("Z80_REQUEST_NMI"),
				ConstRef("Z80_REQUEST_INT"),
				ConstRef("Z80_REQUEST_SPECIAL_RESET"),

				ConstRef("Z80_RESUME_HALT"),
				ConstRef("Z80_RESUME_XY"),
				ConstRef("Z80_RESUME_IM0_XY"),

				ConstRef("Z80_HALT_EXIT_EARLY"),
				ConstRef("Z80_HALT_CANCEL"),
			},
		},
	)
}
