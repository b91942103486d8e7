package classifier

import (
	"fmt"
	"regexp"
	"strings"
)

const systemPrompt = `You are a Web3 QA reviewer. Analyze implementation-level details. Be strict, fair and pragmatic. Also reward genuine learning attempts while filtering low-quality content. Respond ONLY with valid JSON using format: { "decision": "approved|rejected", "quality_rating": 1-10, "category": "Development|DeFi|NFT|General|..." } - DO NOT include any other text or explanations`

const promptTemplate = `<Web3 QA Validation Protocol>
Analyze this QA pair for substantive content relevant to blockchain technology or Solana:

**Content Classification Framework**:
1. BASIC CONTENT (Approved when educational):
- Explains technical concepts (even basic-intermediate ones) or fundamental concepts required to understand blockchain/Solana
- Compares technologies/methods
- References legitimate projects/tools
- Provides educational value and accurate fundamental knowledge
- Covers security practices, wallet management, or economic basics
- Answers "what" and "why" questions for newcomers

- Examples:
  - "How do crypto wallets store private keys securely?"
  - "What's the difference between coins and tokens?"
  - "Why do blockchains need consensus mechanisms?"
  - "How to safely store seed phrases?"
  - "What makes Solana's transaction speed different from Ethereum?"

2. TECHNICAL CONTENT (Approved when substantive):
- Details protocol implementations, cryptographic primitives, or system architecture
- Explains "how" systems work with specific mechanisms/parameters
- Compares engineering approaches or optimization techniques
- Includes code-level concepts, SDK usage, or protocol specifications

- Examples:
  - "SPL tokens use mint authority to control supply creation"
  - "Solana's Tower BFT uses PoH as cryptographic clock"
  - "ZK rollups batch transactions using validity proofs"
  - "How does Solana's Sealevel runtime enable parallel transaction processing?"
  - "Compressed NFTs use concurrent Merkle trees for parallel updates"
  - "Cosmos IBC uses Merkle proofs for cross-chain state verification"

**APPROVAL CRITERIA**:
Approve Basic Content When:
  - Provides clear educational value for newcomers
  - Explains foundational concepts accurately
  - Helps users avoid common security pitfalls
  - Compares technologies at architectural level

Approve Technical Content When:
  - Contains implementation-specific details
  - References exact protocol versions/parameters
  - Explains cryptographic primitives in context
  - Uses code snippets to explain some relevant topic
  - Helps with difficult to find technical details or troubleshooting
  - Details tradeoffs in system design choices

Reject If:
  - Superficial treatment of complex topics
  - Speculation without technical basis
  - Promotional content masquerading as education
  - Factual inaccuracies in core concepts
  - Vague philosophical discussions without technical anchor

**Category Assignment**:
  Assign the most specific applicable category from:
  - Development: Software dev, tools, SDKs, programming
  - DeFi: Decentralized finance, exchanges, lending
  - NFT: Non-fungible tokens, digital collectibles
  - General: General blockchain concepts, intros
  - Security: Wallet security, audits, best practices
  - Economics: Tokenomics, staking, fees
  - Governance: DAOs, voting, protocol upgrades
  - Scalability: Layer 2, throughput optimizations
  - Interoperability: Cross-chain protocols, bridges
  - Privacy: ZK-proofs, anonymous transactions
  - Consensus: PoW, PoS, consensus mechanisms
  - Smart Contracts: Development, deployment
  - Wallets: Key management, transaction signing
  - DAOs: Decentralized organizations
  - Layer 2: Rollups, state channels
  - Cross-Chain: Multi-chain interoperability

**Validation Examples**:
[Basic/Approved] "How do hardware wallets isolate private keys from internet exposure?"
[Basic/Approved] "What are the differences between proof-of-work and proof-of-stake consensus mechanisms?"
[Basic/Approved] "Why do blockchain networks require transaction fees (gas)?"
[Basic/Approved] "How does multi-signature authentication enhance wallet security?"
[Basic/Approved] "How do bridge protocols enable cross-chain asset transfers?"
[Basic/Rejected] "Which crypto is best for quick profits?"
[Basic/Rejected] "What crypto will 100x after Bitcoin halving?" (Price speculation)
[Basic/Rejected] "How to bypass KYC on centralized exchanges?" (Illegal circumvention)
[Basic/Rejected] "Why [Influencer] says Dogecoin will replace the dollar." (Celebrity-driven hype)
[Technical/Approved] "Uniswap V3 uses concentrated liquidity positions stored in singleton contracts to reduce gas costs by 90%% compared to V2."
[Technical/Approved] "Solana's versioned transactions introduce address lookup tables that reduce transaction size by 40%% through indirect account references."
[Technical/Approved] "Cosmos SDK's IBC module implements Merkle proof verification using ICS-23 specs for cross-chain state validation."
[Technical/Rejected] "Ethereum can process 1M TPS with sharding" (inaccurate)
[Technical/Rejected] "Smart contracts can't be hacked" (false)
[Technical/Rejected] "Polygon zkEVM achieves infinite scalability through quantum-resistant proofs." (Unsubstantiated technical claims)

Question: %s
Answer: %s

Respond with JSON: { "decision": "approved|rejected", "quality_rating": 1-10, "category": "Category" }`

func buildPrompt(question, answer string) string {
	return fmt.Sprintf(promptTemplate, question, answer)
}

// disallowedRunes matches everything outside word characters, whitespace and
// a small punctuation set. Matches are stripped before the text reaches any
// prompt, shrinking the prompt-injection surface.
var disallowedRunes = regexp.MustCompile(`[^\w\s.\-/():"'#%=@$]`)

func sanitizeField(s string) string {
	return disallowedRunes.ReplaceAllString(strings.TrimSpace(s), "")
}
