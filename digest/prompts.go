package digest

const (
	responseFormat = "Format your response in clean, readable MARKDOWN. Include relevant timestamps in the format " +
		"[[123.4]] after key points to allow readers to jump to specific moments in the video."

	programmingFormat = "Include practical code examples and implementations in MARKDOWN format"
	mathFormat        = "Include mathematical formulas, equations, and worked examples in MARKDOWN format"

	timestampRules = "\n\nTIMESTAMP USAGE RULES:" +
		"\n1. Use timestamps from the transcript to reference specific moments" +
		"\n2. Copy timestamps exactly as they appear: [[123.4]]" +
		"\n3. Place timestamps after key points, not within sentences" +
		"\n4. Only include timestamps for content viewers would want to revisit" +
		"\n5. Make timestamp placement feel natural, not forced" +
		"\n6. Example: 'This concept is fundamental to understanding AI. [[456.7]]'" +
		"\n7. Use the content size to determine the number of timestamps to use. "

	defaultTemplate = "Transform this video content into well-written material. Write naturally as if you are " +
		"the original creator sharing your knowledge:\n\n{transcript}"

	defaultSystem = "You are transforming video content into well-written material. Write naturally as the " +
		"original creator sharing knowledge with readers. Aim for at least 200 words while maintaining the " +
		"creator's authentic voice."

	transcriptPlaceholder = "{transcript}"
)

var programmingTags = []string{
	"python programming", "web development", "javascript tutorial", "coding basics",
	"software engineering", "data structures", "algorithms", "full stack", "machine learning",
	"database design", "api development", "coding interview", "backend development",
	"frontend development", "devops", "typescript", "javascript", "react", "programming", "programmer",
}

var mathTags = []string{
	"mathematics", "calculus", "linear algebra", "statistics", "probability", "algebra", "geometry",
	"trigonometry", "discrete math", "mathematical proofs", "number theory", "differential equations",
	"optimization", "numerical methods", "mathematical modeling", "data analysis", "mathematical logic",
	"set theory", "graph theory", "topology",
}

var templates = map[Mode]string{
	ModeTLDR: "Write a concise summary capturing the essence of this content in 2-3 sentences. Write as if you " +
		"are the original creator sharing the main takeaway. Include 1-2 relevant timestamps [[123.4]] for the " +
		"most important moments that capture the core message:\n\n{transcript}",
	ModeKeyInsights: "Present the 5-7 most valuable insights from this content. Write each as a key point with " +
		"explanation, as if you're the creator highlighting what matters most. Include relevant timestamps " +
		"[[123.4]] for each insight to help readers find specific moments in the video:\n\n{transcript}",
	ModeComprehensive: "Transform this content into a detailed, well-structured piece. Cover all main topics and " +
		"important details as if you're the original creator expanding on your ideas for readers. Include " +
		"helpful timestamps [[123.4]] throughout your response for: - Major topic introductions - Key " +
		"definitions and explanations - Important examples or case studies - Crucial insights or conclusions " +
		"Aim for natural timestamp placement that enhances the reading experience:\n\n{transcript}",
	ModeArticle: "Rewrite this content as a comprehensive 2000+ word article. Expand on the ideas, add context, " +
		"draw connections, and provide deeper insights. Write in the creator's voice as if they're sharing " +
		"their expertise with readers. Include strategic timestamps [[123.4]] for: - Introduction of major " +
		"concepts - Supporting evidence and examples - Key insights and conclusions - Actionable advice or " +
		"recommendations Focus on creating valuable content with timestamps that enhance " +
		"navigation:\n\n{transcript}",
}

var systemMessages = map[Mode]string{
	ModeTLDR: "You are transforming video content into concise written form. Write naturally in the creator's " +
		"voice, not as a third-party summarizer. Aim for at least 200 words while staying focused and direct. ",
	ModeKeyInsights: "You are the content creator sharing your key insights with readers. Present your most " +
		"important points clearly and engagingly. Write at least 500 words, focusing on what truly matters. ",
	ModeComprehensive: "You are the content creator writing a comprehensive guide on your topic. Share your " +
		"knowledge thoroughly and systematically. Write at least 1000 words, covering all important aspects " +
		"in depth. ",
	ModeArticle: "You are the content creator writing an in-depth article based on your expertise. Expand on " +
		"your ideas, provide context, and offer deeper insights. Create engaging, informative content that " +
		"stands alone as valuable reading. ",
	ModeCustom: defaultSystem,
}

const (
	firstChunkAddendum = "\n\nThis is the first part of a longer content that will be processed in multiple " +
		"chunks. Write your response as if it's the beginning of a complete piece, setting up the context and " +
		"structure for what follows."
	lastChunkAddendum = "\n\nThis is the final part of the content. Write a conclusion that ties everything " +
		"together, summarizes the key points, and provides a satisfying ending. Make sure to maintain " +
		"consistency with the previous parts."
	middleChunkAddendum = "\n\nYou are continuing from a previous part of the content. Maintain consistency " +
		"with the previous part and continue naturally."
	previousContextHeader = "\n\nPrevious context to maintain continuity:\n"

	genericChunkPrompt = "Process this part of the content:\n\n"
)

// chunkPrompts holds the first, middle and last variants for modes that
// write long form across chunks.
var chunkPrompts = map[Mode][3]string{
	ModeComprehensive: {
		"Transform this content into a detailed, well-structured piece. Cover all main topics and important " +
			"details as if you're the original creator expanding on your ideas for readers. This is the first " +
			"part of a longer content:DO NOT CONCLUDE THE CONTENT. JUST START IT.\n\n",
		"Continue the comprehensive analysis of this part of the content. Maintain the same level of detail " +
			"and structure as previous parts:CONTINUE THE CONTENT HERE.\n\n",
		"This is the final part of the content. Conclude the comprehensive analysis by tying together all " +
			"major points, drawing connections between different sections, and providing a satisfying " +
			"conclusion:CONCLUDE THE CONTENT HERE.\n\n",
	},
	ModeArticle: {
		"Rewrite this content as a comprehensive article. Expand on the ideas, add context, draw connections, " +
			"and provide deeper insights. Write in the creator's voice as if they're sharing their expertise " +
			"with readers. This is the first part of a longer content:DO NOT CONCLUDE THE CONTENT. JUST START " +
			"IT.\n\n",
		"Continue writing the article, maintaining the same style and depth of analysis. Ensure smooth " +
			"transitions from previous parts:CONTINUE THE CONTENT HERE.\n\n",
		"This is the final part of the article. Write a conclusion that synthesizes all major points, draws " +
			"meaningful connections, and leaves readers with valuable insights:CONCLUDE THE CONTENT HERE.\n\n",
	},
}
