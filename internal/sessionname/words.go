package sessionname

var subjects = []string{
	"algebra", "biology", "calculus", "chemistry", "physics", "geometry", "history", "poetry", "latin", "music",
	"botany", "geology", "logic", "grammar", "optics", "ecology", "economics", "ethics", "statistics", "astronomy",
	"anatomy", "zoology", "rhetoric", "painting", "theatre", "genetics", "robotics", "geography", "drafting", "phonics",
}

var places = []string{
	"library", "atrium", "studio", "lab", "attic", "garden", "harbor", "lecture", "tower", "cellar",
	"meadow", "orchard", "archive", "gallery", "courtyard", "loft", "porch", "terrace", "cabin", "den",
	"chapel", "quarry", "lagoon", "grove", "canyon", "ridge", "valley", "summit", "island", "bridge",
}

var tools = []string{
	"pencil", "compass", "abacus", "easel", "lantern", "quill", "ruler", "prism", "beaker", "globe",
	"notebook", "chalk", "marker", "slide", "magnet", "telescope", "microscope", "scroll", "atlas", "protractor",
	"sextant", "hourglass", "kettle", "satchel", "ledger", "stencil", "crayon", "eraser", "binder", "tablet",
}

var adjectives = []string{
	"tiny", "happy", "sleepy", "fluffy", "sparkly", "cheery", "silly", "jolly", "cozy", "shiny",
	"golden", "silver", "crimson", "emerald", "purple", "blue", "red", "green", "bright", "gentle",
	"brave", "calm", "swift", "silent", "curious", "bouncy", "fuzzy", "plucky", "merry", "peppy",
}

var extras = []string{
	"dragon", "unicorn", "griffin", "phoenix", "fairy", "gnome", "sprite", "pixie", "mermaid", "elf",
	"sunbeam", "stardust", "pepper", "muffin", "bubble", "sprout", "glimmer", "whisker", "echo", "jelly",
	"marble", "maple", "cocoa", "hazel", "breeze", "comet", "orbit", "nebula", "pebble", "button",
}
